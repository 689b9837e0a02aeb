package models

// All returns every model managed by the schema migration.
func All() []interface{} {
	return []interface{}{&User{}, &Task{}}
}
