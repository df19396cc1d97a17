package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
)

// FileSystem abstracts the file operations of the resolver for tests.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the OS.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the config and env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths in opts, searching for the ones
// that were not given.
func (cr *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.first(configCandidates(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.first(envCandidates(serviceName))
	}
	return resolved
}

func (cr *Resolver) first(paths []string) string {
	for _, p := range paths {
		if cr.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// searchDirs are the directories a service's files are looked up in, from
// the most to the least specific. The binary may run from the module root
// or from up to two levels below it.
func searchDirs(serviceName string) []string {
	names := []string{serviceName}
	if idx := strings.LastIndex(serviceName, "-"); idx != -1 {
		names = append(names, serviceName[idx+1:])
	}

	var dirs []string
	for _, up := range []string{".", "..", "../.."} {
		for _, n := range names {
			dirs = append(dirs, up+"/cmd/"+n)
		}
	}
	for _, up := range []string{".", ".."} {
		dirs = append(dirs, up+"/config")
	}
	return append(dirs, ".")
}

func configCandidates(serviceName string) []string {
	dirs := searchDirs(serviceName)
	paths := make([]string, 0, len(dirs))
	for _, d := range dirs {
		paths = append(paths, d+"/config.yml")
	}
	return paths
}

func envCandidates(serviceName string) []string {
	dirs := searchDirs(serviceName)
	paths := make([]string, 0, 2*len(dirs)+1)
	for _, name := range []string{".env." + serviceName, ".env"} {
		for _, d := range dirs {
			paths = append(paths, d+"/"+name)
		}
	}
	return append(paths, ".env")
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // explicit config file; must exist when set
	EnvFile    string // explicit .env file
}

// LoaderOption is a functional option for LoadConfig and NewWatcher.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig loads configuration for a service into cfg, a pointer to a
// struct with mapstructure tags. Environment variables named after a key
// (PIPELINE_WORKERS for pipeline.workers) override file values.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	v, _, err := newViper(serviceName, reflect.TypeOf(cfg), opts...)
	if err != nil {
		return err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidConfig,
			fmt.Sprintf("failed to unmarshal config for service %s", serviceName))
	}
	return nil
}

// newViper resolves the files of serviceName and returns a viper instance
// reading them, with an environment binding for every key of target.
func newViper(serviceName string, target reflect.Type, opts ...LoaderOption) (*viper.Viper, ResolvedFiles, error) {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}

	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)
	v, err := readFiles(files, lc)
	if err != nil {
		return nil, files, err
	}
	for _, key := range keysOf(target, "") {
		_ = v.BindEnv(key, EnvName(key))
	}
	return v, files, nil
}

// readFiles loads the .env file into the process environment and the config
// file into a new viper instance. An explicitly requested config file must
// exist and parse; a searched one that fails to parse only logs a warning.
func readFiles(files ResolvedFiles, lc LoaderConfig) (*viper.Viper, error) {
	fs := lc.FileSystem
	log := logger.WithComponent("config")
	v := viper.New()

	if lc.ConfigFile != "" && !fs.Exists(lc.ConfigFile) {
		return nil, errors.InvalidConfig(fmt.Sprintf("config file %s does not exist", lc.ConfigFile))
	}
	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			if lc.ConfigFile != "" {
				return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig,
					fmt.Sprintf("failed to read config file %s", files.ConfigFile))
			}
			log.Warn("failed to load config file", logger.Fields("file", files.ConfigFile, logger.FieldError, err.Error()))
		}
	}

	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load .env file", logger.Fields("file", files.EnvFile, logger.FieldError, err.Error()))
		}
	}
	return v, nil
}

// EnvName is the environment variable bound to a config key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// keysOf lists the dotted config keys of a struct type, following
// mapstructure tags. Squashed fields share their parent's prefix.
func keysOf(t reflect.Type, prefix string) []string {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if strings.Contains(opts, "squash") {
			keys = append(keys, keysOf(f.Type, prefix)...)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}

		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			keys = append(keys, keysOf(ft, prefix+name+".")...)
			continue
		}
		keys = append(keys, prefix+name)
	}
	return keys
}
