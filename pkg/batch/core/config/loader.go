package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

const moduleName = "config"

// EnvPrefix prefixes every environment variable that overrides a configuration value.
const EnvPrefix = "DAYCHE_"

// LoadEnvFile loads a .env file into the process environment.
// An empty path loads ".env" from the working directory. Missing files are not an error.
func LoadEnvFile(envFilePath string, log *logger.Logger) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			log.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Debugf(".env file not found or could not be loaded: %v", err)
	}
}

// LoadConfig reads the YAML file at path and applies environment overrides.
// A missing file fails with a ConfigFileNotFound error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.NewConfigFileNotFound(path, err)
		}
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read config file %s", path), err, false, false)
	}
	return ParseConfig(EmbeddedConfig(data))
}

// ParseConfig builds a Config from raw YAML: defaults first, then the YAML
// document with ${VAR} placeholders expanded, then DAYCHE_* environment variables.
func ParseConfig(raw EmbeddedConfig) (*Config, error) {
	expanded, err := NewOsEnvironmentExpander().Expand(raw)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment variables", err, false, false)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal config", err, false, false)
	}
	if cfg.Database == nil {
		cfg.Database = map[string]interface{}{}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), EnvPrefix); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable zero value.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Schema.Separator) == "" {
		return exception.NewBatchError(moduleName, "schema.separator must not be empty", nil, false, false)
	}
	if c.Ingest.IntervalSeconds < 0 {
		return exception.NewBatchError(moduleName, "ingest.interval_seconds must not be negative", nil, false, false)
	}
	if c.API.Retry.MaxAttempts < 1 {
		c.API.Retry.MaxAttempts = 1
	}
	return nil
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// The variable name is the upper-cased prefix plus the field's yaml tag (e.g. DAYCHE_API_KEY).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch {
		case field.Kind() == reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
		case field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Interface:
			loadMapFromEnv(field, envVarName+"_")
		default:
			envValue, exists := os.LookupEnv(envVarName)
			if !exists {
				continue
			}
			if err := setField(field, envValue); err != nil {
				return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
			}
		}
	}
	return nil
}

// loadMapFromEnv applies variables such as DAYCHE_DATABASE_DEFAULT_PASSWORD to
// map entries: the first segment after the prefix is the map key, the rest the
// lower-cased entry key.
func loadMapFromEnv(mapField reflect.Value, prefix string) {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 || keyAndField[0] == "" || keyAndField[1] == "" {
			continue
		}
		mapKey := strings.ToLower(keyAndField[0])
		entryKey := strings.ToLower(keyAndField[1])

		entry := map[string]interface{}{}
		if existing := mapField.MapIndex(reflect.ValueOf(mapKey)); existing.IsValid() {
			if m, ok := existing.Interface().(map[string]interface{}); ok {
				entry = m
			}
		}
		entry[entryKey] = parts[1]
		mapField.SetMapIndex(reflect.ValueOf(mapKey), reflect.ValueOf(entry))
	}
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, bool and comma separated string slices.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		var items []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
