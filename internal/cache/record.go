package cache

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Record is the persisted state of one package.
type Record struct {
	Status      Status
	PackageDir  string
	PackagesDir string
	TargetDir   string
	Tags        []string
	Hostname    string // empty when no override was active
}

type recordJSON struct {
	Status      string   `json:"status"`
	PackageDir  string   `json:"package_dir,omitempty"`
	PackagesDir string   `json:"packages_dir,omitempty"`
	TargetDir   string   `json:"target_dir,omitempty"`
	Tags        []string `json:"tags"`
	Hostname    *string  `json:"hostname"`
}

// MarshalJSON writes install attributes only for materialized states so a
// loaded record never carries a stale target.
func (r Record) MarshalJSON() ([]byte, error) {
	if !r.Status.Materialized() {
		return json.Marshal(struct {
			Status      string `json:"status"`
			PackageDir  string `json:"package_dir,omitempty"`
			PackagesDir string `json:"packages_dir,omitempty"`
		}{string(r.Status), r.PackageDir, r.PackagesDir})
	}
	out := recordJSON{
		Status:      string(r.Status),
		PackageDir:  r.PackageDir,
		PackagesDir: r.PackagesDir,
		TargetDir:   r.TargetDir,
		Tags:        r.Tags,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if r.Hostname != "" {
		h := r.Hostname
		out.Hostname = &h
	}
	return json.Marshal(out)
}

// decodeRecord applies the integrity rules to one stored record. The returned
// string describes the violation, if any.
func decodeRecord(raw json.RawMessage) (Record, string) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil || keys == nil {
		return Record{}, "record is not an object"
	}
	rawStatus, ok := keys["status"]
	if !ok {
		return Record{}, "record has no status"
	}
	var status string
	if err := json.Unmarshal(rawStatus, &status); err != nil {
		return Record{}, "status is not a string"
	}
	s := Status(status)
	if !s.Valid() {
		return Record{Status: s}, fmt.Sprintf("invalid status %q", status)
	}
	var missing []string
	for _, k := range requiredKeys(s) {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Record{Status: s}, fmt.Sprintf("status %s but missing %v", s, missing)
	}

	var rj recordJSON
	if err := json.Unmarshal(raw, &rj); err != nil {
		return Record{Status: s}, fmt.Sprintf("malformed record: %v", err)
	}
	r := Record{
		Status:      s,
		PackageDir:  rj.PackageDir,
		PackagesDir: rj.PackagesDir,
		TargetDir:   rj.TargetDir,
		Tags:        slices.Clone(rj.Tags),
	}
	if rj.Hostname != nil {
		r.Hostname = *rj.Hostname
	}
	return r, ""
}
