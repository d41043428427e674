// Package config provides configuration management for pressify using
// Viper for loading from files, environment variables and command-line
// flags.
//
// The configuration describes the project layout (source, build, dist and
// backup directories), the reload proxy ports, the container environment
// (compose command, provisioned resources, default service) and the asset
// pipelines. The project's .env file supplies SERVER_PORT and PROXY_PORT
// the same way the container environment reads them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Project     ProjectConfig     `yaml:"project" json:"project" mapstructure:"project"`
	Server      ServerConfig      `yaml:"server" json:"server" mapstructure:"server"`
	Environment EnvironmentConfig `yaml:"environment" json:"environment" mapstructure:"environment"`
	Assets      AssetsConfig      `yaml:"assets" json:"assets" mapstructure:"assets"`
	Watch       WatchConfig       `yaml:"watch" json:"watch" mapstructure:"watch"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging" mapstructure:"logging"`
}

type ProjectConfig struct {
	Root      string `yaml:"root" json:"root" mapstructure:"root"`
	Theme     string `yaml:"theme" json:"theme" mapstructure:"theme"`
	SourceDir string `yaml:"source_dir" json:"source_dir" mapstructure:"source_dir"`
	BuildDir  string `yaml:"build_dir" json:"build_dir" mapstructure:"build_dir"`
	DistDir   string `yaml:"dist_dir" json:"dist_dir" mapstructure:"dist_dir"`
	BackupDir string `yaml:"backup_dir" json:"backup_dir" mapstructure:"backup_dir"`
}

type ServerConfig struct {
	Host      string `yaml:"host" json:"host" mapstructure:"host"`
	Port      int    `yaml:"port" json:"port" mapstructure:"port"`
	ProxyPort int    `yaml:"proxy_port" json:"proxy_port" mapstructure:"proxy_port"`
	Open      bool   `yaml:"open" json:"open" mapstructure:"open"`
}

type EnvironmentConfig struct {
	ComposeCommand []string   `yaml:"compose_command" json:"compose_command" mapstructure:"compose_command"`
	Service        string     `yaml:"service" json:"service" mapstructure:"service"`
	HostAddress    string     `yaml:"host_address" json:"host_address" mapstructure:"host_address"`
	Directories    []string   `yaml:"directories" json:"directories" mapstructure:"directories"`
	Templates      []Template `yaml:"templates" json:"templates" mapstructure:"templates"`
}

// Template declares one generated file: Source is read, each placeholder
// token is replaced with the named platform value and the result is
// written to Target.
type Template struct {
	Target       string        `yaml:"target" json:"target" mapstructure:"target"`
	Source       string        `yaml:"source" json:"source" mapstructure:"source"`
	Placeholders []Placeholder `yaml:"placeholders" json:"placeholders" mapstructure:"placeholders"`
}

// Placeholder maps a template token to a platform value name
// ("uid", "gid" or "host_address"). Tokens are kept as a list because
// viper lowercases map keys.
type Placeholder struct {
	Token string `yaml:"token" json:"token" mapstructure:"token"`
	Value string `yaml:"value" json:"value" mapstructure:"value"`
}

type AssetsConfig struct {
	HeaderScripts []string `yaml:"header_scripts" json:"header_scripts" mapstructure:"header_scripts"`
	WelcomePage   string   `yaml:"welcome_page" json:"welcome_page" mapstructure:"welcome_page"`
	Minify        bool     `yaml:"minify" json:"minify" mapstructure:"minify"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce" mapstructure:"debounce"`
	Ignore   []string      `yaml:"ignore" json:"ignore" mapstructure:"ignore"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
	Dir    string `yaml:"dir" json:"dir" mapstructure:"dir"`
}

// DefaultTemplates are the generated files of a standard project.
func DefaultTemplates() []Template {
	return []Template{
		{
			Target:       "Dockerfile",
			Source:       "Dockerfile.in",
			Placeholders: []Placeholder{{Token: "{{UID}}", Value: "uid"}, {Token: "{{GID}}", Value: "gid"}},
		},
		{
			Target:       "config/php.ini",
			Source:       "config/php.ini.in",
			Placeholders: []Placeholder{{Token: "{{XDEBUG_CLIENT_HOST}}", Value: "host_address"}},
		},
		{
			Target:       ".env",
			Source:       ".env.in",
			Placeholders: []Placeholder{{Token: "{{WPFY_UID}}", Value: "uid"}, {Token: "{{WPFY_GID}}", Value: "gid"}},
		},
	}
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project.root", ".")
	v.SetDefault("project.theme", "wordpressify")
	v.SetDefault("project.source_dir", "src")
	v.SetDefault("project.build_dir", "build")
	v.SetDefault("project.dist_dir", "dist")
	v.SetDefault("project.backup_dir", "backups")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 80)
	v.SetDefault("server.proxy_port", 3010)
	v.SetDefault("server.open", true)

	v.SetDefault("environment.compose_command", []string{"docker-compose"})
	v.SetDefault("environment.service", "wordpress")
	v.SetDefault("environment.directories", []string{"build", "build/wordpress", "xdebug"})

	v.SetDefault("assets.header_scripts", []string{"node_modules/jquery/dist/jquery.js"})
	v.SetDefault("assets.welcome_page", "config/nginx/welcome.html")
	v.SetDefault("assets.minify", true)

	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("watch.ignore", []string{"node_modules", ".git"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// BindEnv binds the variables shared with the container environment.
// SERVER_PORT and PROXY_PORT are read without the PRESSIFY_ prefix.
func BindEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "PRESSIFY_SERVER_PORT", "SERVER_PORT")
	_ = v.BindEnv("server.proxy_port", "PRESSIFY_SERVER_PROXY_PORT", "PROXY_PORT")
}

// LoadDotenv loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an
// error: the file is generated on the first env:start.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load unmarshals the global viper instance into a Config.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals v into a validated Config.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	BindEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Slices set through env vars arrive as a single space separated string
	if v.IsSet("environment.compose_command") && len(config.Environment.ComposeCommand) == 1 {
		config.Environment.ComposeCommand = strings.Fields(config.Environment.ComposeCommand[0])
	}

	if len(config.Environment.Templates) == 0 {
		config.Environment.Templates = DefaultTemplates()
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Path joins a project-relative path onto the project root.
func (c *Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Project.Root, rel)
}

// ThemeBuildDir is where the dev build writes the theme.
func (c *Config) ThemeBuildDir() string {
	return filepath.Join(c.Project.BuildDir, "wordpress", "wp-content", "themes", c.Project.Theme)
}

// PluginBuildDir is where the dev build writes plugins.
func (c *Config) PluginBuildDir() string {
	return filepath.Join(c.Project.BuildDir, "wordpress", "wp-content", "plugins")
}

// ThemeDistDir is where the production build writes the theme.
func (c *Config) ThemeDistDir() string {
	return filepath.Join(c.Project.DistDir, "themes", c.Project.Theme)
}

// ThemeArchive is the packaged production theme.
func (c *Config) ThemeArchive() string {
	return filepath.Join(c.Project.DistDir, c.Project.Theme+".zip")
}
