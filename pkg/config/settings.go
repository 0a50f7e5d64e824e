package config

import "github.com/google/uuid"

// ServiceConfig is one entry of Settings.Services: per-named-service tuning
// that doesn't warrant its own top-level field.
type ServiceConfig struct {
	Addr            string `yaml:"addr" json:"addr"`
	MailboxCapacity int    `yaml:"mailbox_capacity" json:"mailbox_capacity"`
	Threads         int    `yaml:"threads" json:"threads"`
}

// Settings is the runtime's single configuration collaborator: one
// YAML/JSON file, loaded whole, with environment overrides applied on top.
// There is deliberately no layered multi-file merge here -- the teacher's
// Manager/Validator machinery already covers that ground, and that engine
// is out of scope for this service.
type Settings struct {
	Env          string                   `yaml:"env" json:"env"`
	LogLevel     string                   `yaml:"log_level" json:"log_level"`
	JSONLogs     bool                     `yaml:"json_logs" json:"json_logs"`
	ServerFlavor string                   `yaml:"server_flavor" json:"server_flavor"`
	Features     []string                 `yaml:"features" json:"features"`
	Services     map[string]ServiceConfig `yaml:"services" json:"services"`

	// InstanceID correlates this process's logs and diagnostic events across
	// a fleet; generated if the file/env didn't supply one.
	InstanceID string `yaml:"instance_id" json:"instance_id"`
}

// LoadSettings loads Settings from path (YAML or JSON, by extension) and
// applies "EA__"-prefixed, double-underscore-nested environment overrides,
// e.g. EA__LOGLEVEL overrides LogLevel (field names are upper-cased as-is,
// not split on word boundaries). It is a thin wrapper over
// LoadWithEnv, reusing ApplyEnvOverrides' reflection-based field walk
// rather than reimplementing it. Map-valued fields such as Services are
// not reachable through this path (their keys aren't known to the
// reflection walk) and must come from the file itself.
func LoadSettings(path string) (*Settings, error) {
	var s Settings
	if err := LoadWithEnv(path, "EA", &s); err != nil {
		return nil, err
	}
	if s.InstanceID == "" {
		s.InstanceID = uuid.New().String()
	}
	return &s, nil
}
