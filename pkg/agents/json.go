package agents

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"
)

// decodeJSON unmarshals model output into v, repairing malformed JSON once
// before giving up. Models wrap JSON in code fences or leave trailing commas
// often enough that repair-then-retry is the normal path, not the exception.
func decodeJSON(s string, v any) error {
	err := json.Unmarshal([]byte(s), v)
	if err == nil {
		return nil
	}
	fixed, rerr := jsonrepair.JSONRepair(s)
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}
