package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	Location       string `toml:"location"`
	Visitor        string `toml:"visitor"`
	VisitSessionID string `toml:"visit_session_id,omitempty"`
	PageID         string `toml:"page_id,omitempty"`
	DeviceToken    string `toml:"device_token,omitempty"`
	UpdatedAt      string `toml:"updated_at,omitempty"`
}
