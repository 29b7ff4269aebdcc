package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string // DEV (local; default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		Build    string

		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		WorkDir          string
		TimeZone         *time.Location
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server       ServerConfig
		Database     DatabaseConfig
		Redis        RedisConfig
		Registration RegistrationConfig
		Uploads      UploadsConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	RegistrationConfig struct {
		EmailDomain string
		CodeExpiry  time.Duration
		MaxAttempts int
	}

	UploadsConfig struct {
		Root            string
		MaxSize         int64 // chat/note/activity files
		ScheduleMaxSize int64
	}
)

func (dc DatabaseConfig) Address() string {
	return dc.Host + ":" + dc.Port
}

// Conf is the app-wide configuration, set by NewConfig.
var Conf *Config

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "StudyMate")
	v.SetDefault("secretKey", "q0g$wkz&10ya#-r2=vhu)+s5m(h!x)#*c2(#yg4h^$cegm3emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("timeZone", "America/Sao_Paulo")
	v.SetDefault("defaultFromEmail", "noreply@studymate.localhost")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "studymate")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseUser", "studymate")
	v.SetDefault("databasePassword", "studymate")
	v.SetDefault("databaseDisableTLS", true)
	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("registrationEmailDomain", "etec.sp.gov.br")
	v.SetDefault("registrationCodeExpiry", 30*time.Minute)
	v.SetDefault("registrationMaxAttempts", 5)
	v.SetDefault("uploadsRoot", filepath.Join(Getwd(), "media"))
	v.SetDefault("uploadsMaxSize", 10<<20)
	v.SetDefault("uploadsScheduleMaxSize", 5<<20)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	tz, err := time.LoadLocation(v.GetString("timeZone"))
	if err != nil {
		log.Fatalf("config.time.LoadLocation(%s): %v", v.GetString("timeZone"), err)
	}

	conf := &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          Getwd(),
		TimeZone:         tz,
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Addr:                      v.GetString("serverAddr"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
		Registration: RegistrationConfig{
			EmailDomain: v.GetString("registrationEmailDomain"),
			CodeExpiry:  v.GetDuration("registrationCodeExpiry"),
			MaxAttempts: v.GetInt("registrationMaxAttempts"),
		},
		Uploads: UploadsConfig{
			Root:            v.GetString("uploadsRoot"),
			MaxSize:         v.GetInt64("uploadsMaxSize"),
			ScheduleMaxSize: v.GetInt64("uploadsScheduleMaxSize"),
		},
	}
	Conf = conf
	return conf
}
