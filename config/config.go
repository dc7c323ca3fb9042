package config

import (
	"os"
	"strconv"
)

type LogLevel string

const (
	Debug LogLevel = "debug"
	Info  LogLevel = "info"
	Warn  LogLevel = "warn"
	Error LogLevel = "error"
)

var (
	name    = "MADMIN-StrongSwan"
	version = "1.2.0"
)

func GetName() string {
	return name
}

func GetVersion() string {
	return version
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("MADMIN_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("MADMIN_DEBUG") == "true"
}

func GetDBPath() string {
	if dbPath := os.Getenv("MADMIN_DB_PATH"); dbPath != "" {
		return dbPath
	}
	return "/usr/local/madmin/madmin.db"
}

// GetSwanctlDir is where the managed swanctl conf.d snippets live.
func GetSwanctlDir() string {
	if dir := os.Getenv("MADMIN_SWANCTL_DIR"); dir != "" {
		return dir
	}
	return "/etc/swanctl/conf.d"
}

// GetViciSocket is the charon VICI control socket path.
func GetViciSocket() string {
	if sock := os.Getenv("MADMIN_VICI_SOCKET"); sock != "" {
		return sock
	}
	return "/var/run/charon.vici"
}

func GetListen() string {
	if listen := os.Getenv("MADMIN_WEB_LISTEN"); listen != "" {
		return listen
	}
	return ""
}

func GetPort() int {
	if portEnv := os.Getenv("MADMIN_WEB_PORT"); portEnv != "" {
		if port, err := strconv.Atoi(portEnv); err == nil {
			return port
		}
	}
	return 2096
}

// GetTrafficAge is the traffic-sample retention window in days.
func GetTrafficAge() int {
	if ageEnv := os.Getenv("MADMIN_TRAFFIC_AGE"); ageEnv != "" {
		if age, err := strconv.Atoi(ageEnv); err == nil && age > 0 {
			return age
		}
	}
	return 30
}
