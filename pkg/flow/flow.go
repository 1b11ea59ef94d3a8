package flow

// Flow represents a parsed flow file.
type Flow struct {
	SourcePath string // Path to the source file
	Config     Config // Flow configuration (name, app, env)
	Steps      []Step // Steps to execute
}

// Config represents flow-level configuration, the optional first YAML
// document of a flow file.
type Config struct {
	Name    string            `yaml:"name"`
	App     string            `yaml:"app"` // Launched before the first step when set
	URL     string            `yaml:"url"` // Opened before the first step when set
	Env     map[string]string `yaml:"env"`
	Timeout int               `yaml:"timeout"` // Flow timeout in ms
}
