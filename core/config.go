package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	// AttendanceConfig holds the status cut-offs per period. A scan strictly
	// before LateAt is Present, before AbsentAt is Late, and Absent otherwise.
	// Values are wall-clock "HH:MM" on a 24h clock.
	AttendanceConfig struct {
		MorningLateAt     string
		MorningAbsentAt   string
		AfternoonLateAt   string
		AfternoonAbsentAt string
	}

	GradesConfig struct {
		// EditWindow is how long a teacher's grade save remains editable.
		EditWindow time.Duration
	}

	Config struct {
		AppName      string
		Env          string
		Debug        bool
		TestMode     bool
		SecretKey    string
		Build        string
		WorkDir      string
		RollbarToken string
		Server       ServerConfig
		Database     DatabaseConfig
		Attendance   AttendanceConfig
		Grades       GradesConfig
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig loads the app configuration from the environment,
// with a `config/.env.<env>` file loaded first if it exists.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Shule")
	conf.SetDefault("secretKey", "k3y$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverPort", 8000)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 30*24*time.Hour)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "shule")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("morningLateAt", "08:00")
	conf.SetDefault("morningAbsentAt", "10:00")
	conf.SetDefault("afternoonLateAt", "14:00")
	conf.SetDefault("afternoonAbsentAt", "15:00")
	conf.SetDefault("gradeEditWindow", 24*time.Hour)

	var testMode bool
	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Debug:        conf.GetBool("debug"),
		TestMode:     testMode,
		SecretKey:    conf.GetString("secretKey"),
		Build:        conf.GetString("build"),
		WorkDir:      wd,
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Port:                      conf.GetInt("serverPort"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetInt("dbPort"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Attendance: AttendanceConfig{
			MorningLateAt:     conf.GetString("morningLateAt"),
			MorningAbsentAt:   conf.GetString("morningAbsentAt"),
			AfternoonLateAt:   conf.GetString("afternoonLateAt"),
			AfternoonAbsentAt: conf.GetString("afternoonAbsentAt"),
		},
		Grades: GradesConfig{
			EditWindow: conf.GetDuration("gradeEditWindow"),
		},
	}
}
