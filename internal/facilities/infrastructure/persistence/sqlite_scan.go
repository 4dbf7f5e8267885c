package persistence

import (
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database/sqlite"
)

// timeDecoder parses a run of stored timestamps and keeps the first failure.
type timeDecoder struct {
	err error
}

func (d *timeDecoder) decode(s string) time.Time {
	if d.err != nil {
		return time.Time{}
	}
	t, err := sqlite.ParseTime(s)
	d.err = err
	return t
}

func encodeFeatures(features []string) (string, error) {
	if features == nil {
		features = []string{}
	}
	raw, err := json.Marshal(features)
	return string(raw), err
}

func decodeFeatures(raw string) ([]string, error) {
	var features []string
	if raw == "" {
		return features, nil
	}
	if err := json.Unmarshal([]byte(raw), &features); err != nil {
		return nil, err
	}
	return features, nil
}
