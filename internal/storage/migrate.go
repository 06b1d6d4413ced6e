package storage

import "fmt"

// migration upgrades a manifest from one schema version to the next.
type migration struct {
	from, to string
	apply    func(*Manifest)
}

// migrations is the registered, ordered upgrade path. Empty today since
// CurrentSchemaVersion is the only version this engine has ever written;
// the chain exists so a future schema change has somewhere to register its
// upgrade function instead of special-casing version comparisons inline.
var migrations []migration

// Migrate applies every registered migration between m's on-disk schema
// version and CurrentSchemaVersion, in order, per spec.md §4.6's version
// migration rule.
func Migrate(m *Manifest) error {
	for m.SchemaVersion != CurrentSchemaVersion {
		applied := false
		for _, mig := range migrations {
			if mig.from == m.SchemaVersion {
				mig.apply(m)
				m.SchemaVersion = mig.to
				applied = true
				break
			}
		}
		if !applied {
			return fmt.Errorf("no migration path from schema version %s to %s", m.SchemaVersion, CurrentSchemaVersion)
		}
	}
	return nil
}
