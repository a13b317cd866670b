package models

import "encoding/json"

// unmarshalJSONB decodes a Postgres jsonb column into dest, treating a
// nil/empty column as "leave dest at its zero value" rather than an
// error, since several builds/config rows carry no installation steps
// or no changelog.
func unmarshalJSONB(raw []byte, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
