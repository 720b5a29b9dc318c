package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf holds the app configuration. It is loaded once on startup.
var Conf *Config

type (
	Config struct {
		Debug     bool
		TestMode  bool
		Env       string // DEV (default), TEST, QA, PROD
		AppName   string
		Build     string
		SecretKey string

		Server   ServerConfig
		Database DatabaseConfig

		RollbarToken string
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
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
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "w#tchuw@ntn0w?48^=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("jwtExpirationDelta", 10*time.Minute)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "darasa")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbUser", "darasa")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbDisableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:     v.GetBool("debug"),
		TestMode:  v.GetBool("testMode"),
		Env:       env,
		AppName:   v.GetString("appName"),
		Build:     v.GetString("build"),
		SecretKey: v.GetString("secretKey"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Addr:                      v.GetString("serverAddr"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		RollbarToken: v.GetString("rollbarToken"),
	}
}
