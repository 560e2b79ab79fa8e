package infra

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix env prefix for viper
const EnvPrefix = "GOAPP"

// runtime environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig App option object
type AppConfig struct {
	AppID          string        `mapstructure:"app_id" json:"app_id" yaml:"app_id" validate:"required"`            // Application ID
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`                                      // bind host address
	Port           int           `mapstructure:"port" json:"port" yaml:"port"`                                      // bind listen port
	Env            string        `mapstructure:"env" json:"env" yaml:"env" validate:"oneof=development production"` // runtime environment
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`     // abort requests after
	SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout" yaml:"session_timeout"`
	SessionRefresh time.Duration `mapstructure:"session_refresh" json:"session_refresh" yaml:"session_refresh"` // session refresh threshold
	Database       struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=mysql postgres sqlite"`         // driver name
		Host     string `mapstructure:"host" json:"host" yaml:"host" validate:"required_unless=Driver sqlite"`             // server host
		MaxConn  int32  `mapstructure:"maxconn" json:"maxconn" yaml:"maxconn" validate:"min=1"`                            // maximum opening connections number
		Password string `mapstructure:"password" json:"password" yaml:"password" validate:"required_unless=Driver sqlite"` // db password
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                                                      // server port
		Protocol string `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=tcp udp"`       // connection protocol, eg.tcp
		Query    string `mapstructure:"query" json:"query" yaml:"query"`                                                   // DSN query parameter
		Schema   string `mapstructure:"schema" json:"schema" yaml:"schema" validate:"required_unless=Driver sqlite"`       // use schema
		User     string `mapstructure:"username" json:"username" yaml:"username" validate:"required_unless=Driver sqlite"` // db username
		Path     string `mapstructure:"path" json:"path" yaml:"path" validate:"required_if=Driver sqlite"`                 // sqlite database file
	} `mapstructure:"database" json:"database" yaml:"database"`
	Logging struct {
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`                            // log file path
		Level    string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"` // global logging level
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
	Security struct {
		IDLength  int    `mapstructure:"id_length" json:"id_length" yaml:"id_length" validate:"min=8"` // length of generated ID for entities
		JWTMethod string `mapstructure:"jwt_method" json:"jwt_method" yaml:"jwt_method" validate:"oneof=HS256 HS512"`
		JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"jwt_secret" validate:"required"`
		TokenName string `mapstructure:"token_name" json:"token_name" yaml:"token_name" validate:"required"` // jwt token name set in cookie
	} `mapstructure:"security" json:"security" yaml:"security"`
	KVStore struct {
		Enabled  bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`                                 // token blacklist and issue guard
		Host     string `mapstructure:"host" json:"host" yaml:"host"`                                          // bind host address
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                                          // bind listen port
		Password string `mapstructure:"password" json:"-" yaml:"password" validate:"required_if=Enabled true"` // password for security reasons
	} `mapstructure:"kv" json:"kv" yaml:"kv"`
	Course struct {
		LessonCount     int `mapstructure:"lesson_count" json:"lesson_count" yaml:"lesson_count" validate:"eq=7"`
		PassNumerator   int `mapstructure:"pass_numerator" json:"pass_numerator" yaml:"pass_numerator" validate:"min=0,ltefield=PassDenominator"`
		PassDenominator int `mapstructure:"pass_denominator" json:"pass_denominator" yaml:"pass_denominator" validate:"min=1"`
	} `mapstructure:"course" json:"course" yaml:"course"`
	Certificate struct {
		OutputDir      string        `mapstructure:"output_dir" json:"output_dir" yaml:"output_dir" validate:"required"`
		RenderTimeout  time.Duration `mapstructure:"render_timeout" json:"render_timeout" yaml:"render_timeout" validate:"gt=0"`
		ProgramTitle   string        `mapstructure:"program_title" json:"program_title" yaml:"program_title" validate:"required"`
		GuardTTL       time.Duration `mapstructure:"guard_ttl" json:"guard_ttl" yaml:"guard_ttl"`                                    // lifetime of the per-account issue guard
		NumberAttempts int           `mapstructure:"number_attempts" json:"number_attempts" yaml:"number_attempts" validate:"min=1"` // retries after a certificate number collision
	} `mapstructure:"certificate" json:"certificate" yaml:"certificate"`
	DevOP struct {
		APM bool `mapstructure:"apm" json:"apm" yaml:"apm"`
	} `mapstructure:"devop" json:"devop" yaml:"devop"`
}

// InitConfig init app config using viper
func InitConfig() (*AppConfig, error) {
	registerFlags(pflag.CommandLine)
	pflag.Parse()
	return loadConfig(viper.GetViper(), pflag.CommandLine)
}

func registerFlags(fs *pflag.FlagSet) {
	// app
	fs.String("host", "", "binding address")
	fs.String("app_id", "", "application identifier (required)")
	fs.String("env", EnvDevelopment, "runtime environment, can be 'development' or 'production'")
	fs.Int("port", 8081, "listening port")
	fs.Duration("request_timeout", 30*time.Second, "abort requests running longer than this")
	fs.Duration("session_timeout", 30*time.Minute, "JWT lifetime(m, s and h units are supported), eg.30m")
	fs.Duration("session_refresh", 5*time.Minute, "session refresh threshold(m, s and h units are supported), eg.5m")

	// database
	fs.String("database.driver", "sqlite", "database driver to use, one of mysql, postgres, sqlite")
	fs.String("database.host", "127.0.0.1", "database host")
	fs.Int("database.port", 3306, "database server port")
	fs.String("database.protocol", "", "connection protocol(if mysql is used, this flag must be set), eg.tcp")
	fs.String("database.username", "", "database username (required unless sqlite)")
	fs.String("database.password", "", "database password (required unless sqlite)")
	fs.String("database.schema", "", "database schema (required unless sqlite)")
	fs.String("database.query", "", "additional DSN query parameters('?' is auto prefixed)")
	fs.String("database.path", "course.db", "sqlite database file")
	fs.Int32("database.maxconn", 50, `max connection count, if you encounter a "too many connections" error, please consider
increasing the max_connection value of your db server, or lower this value`)

	// logging
	fs.String("logging.level", "info", "logging level")
	fs.String("logging.file_path", "", "log to file")

	// security
	fs.Int("security.id_length", 24, "set length of generated ID for entities")
	fs.String("security.jwt_method", "HS256", "hash algorithm used for JWT auth")
	fs.String("security.jwt_secret", "", "JWT secret shared with the auth service (required)")
	fs.String("security.token_name", "", "cookie name to store the token (required)")

	// kv storage
	fs.Bool("kv.enabled", false, "use redis for the token blacklist and the certificate issue guard")
	fs.String("kv.host", "127.0.0.1", "kv host")
	fs.Int("kv.port", 6379, "kv server port")
	fs.String("kv.password", "", "kv server password (required when enabled)")

	// course
	fs.Int("course.lesson_count", 7, "number of lessons in the course")
	fs.Int("course.pass_numerator", 5, "test pass threshold numerator")
	fs.Int("course.pass_denominator", 7, "test pass threshold denominator")

	// certificate
	fs.String("certificate.output_dir", "./certificates", "directory for rendered certificate documents")
	fs.Duration("certificate.render_timeout", 20*time.Second, "maximum time spent rendering one certificate")
	fs.String("certificate.program_title", "Реабилитация после лечения рака лёгких", "program title printed on certificates")
	fs.Duration("certificate.guard_ttl", 30*time.Second, "lifetime of the per-account issue guard")
	fs.Int("certificate.number_attempts", 3, "attempts to find an unused certificate number")

	// DevOp
	fs.Bool("devop.apm", false, "enable apm metrics")
}

func loadConfig(v *viper.Viper, fs *pflag.FlagSet) (*AppConfig, error) {
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config = new(AppConfig)
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if config.Logging.Level == "debug" {
		if configJSON, err := json.MarshalIndent(config, "", "  "); err == nil {
			log.Printf("App config: %s\n", string(configJSON))
		}
	}
	return config, nil
}

func validateConfig(config *AppConfig) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("mapstructure")
		if name == "-" || name == "" {
			return ""
		}
		return name
	})
	err := validate.Struct(config)
	if _, ok := err.(*validator.InvalidValidationError); ok {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	if err == nil {
		return nil
	}

	var msg []string
	for _, field := range err.(validator.ValidationErrors) {
		namespace := field.Namespace()
		fieldName := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
		switch field.Tag() {
		case "required", "required_if", "required_unless":
			msg = append(msg, fmt.Sprintf("%s is required", fieldName))
		case "oneof":
			msg = append(msg, fmt.Sprintf("%s must be one of (%s)", fieldName, field.Param()))
		default:
			msg = append(msg, fmt.Sprintf("%s failed on %s=%s", fieldName, field.Tag(), field.Param()))
		}
	}
	return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
}
