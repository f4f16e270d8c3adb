package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"repo-digest/logging"
)

const (
	DefaultTempDir    = "./temp"
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultBranch     = "main"
	DefaultStrategy   = "archive"
)

// Config represents the application configuration
type Config struct {
	TempDir               string
	GitHubToken           string
	APIBaseURL            string
	Branch                string
	Strategy              string // archive, tree or clone
	DeleteAfterExtraction bool
	WriteArtifact         bool
	ExcludePatterns       []string
	Log                   logging.Config
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		TempDir:       DefaultTempDir,
		APIBaseURL:    DefaultAPIBaseURL,
		Branch:        DefaultBranch,
		Strategy:      DefaultStrategy,
		WriteArtifact: true,
		Log:           logging.DefaultConfig(),
	}
}

// Load reads envFilePath (if present) into the process environment and then
// builds the configuration from environment variables.
func Load(envFilePath string) (Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", envFilePath, err)
		}
	}

	def := DefaultConfig()
	cfg := Config{
		TempDir:               getEnv("TEMP_DIR", def.TempDir),
		GitHubToken:           getEnv("GITHUB_TOKEN", ""),
		APIBaseURL:            strings.TrimRight(getEnv("GITHUB_API_URL", def.APIBaseURL), "/"),
		Branch:                getEnv("REPO_BRANCH", def.Branch),
		Strategy:              getEnv("REPO_STRATEGY", def.Strategy),
		DeleteAfterExtraction: getEnvAsBool("REPO_DELETE_AFTER_EXTRACTION", def.DeleteAfterExtraction),
		WriteArtifact:         getEnvAsBool("REPO_WRITE_ARTIFACT", def.WriteArtifact),
		ExcludePatterns:       getEnvAsList("REPO_EXCLUDE"),
		Log:                   def.Log,
	}
	cfg.Log.Level = logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	cfg.Log.Format = getEnv("LOG_FORMAT", def.Log.Format)

	switch cfg.Strategy {
	case "archive", "tree", "clone":
	default:
		return Config{}, fmt.Errorf("unknown REPO_STRATEGY %q (want archive, tree or clone)", cfg.Strategy)
	}

	return cfg, nil
}

// RepoList is the YAML batch file consumed by the batch command.
type RepoList struct {
	Repositories []string `yaml:"repositories"`
}

// LoadRepoList reads a YAML file with a top-level "repositories" list.
func LoadRepoList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading repository list: %w", err)
	}

	var list RepoList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("error parsing repository list: %w", err)
	}

	urls := make([]string, 0, len(list.Repositories))
	for _, u := range list.Repositories {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
