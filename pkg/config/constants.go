package config

const (
	EnvPrefix = "SIGNALCAST"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "SIGNALCAST_APP_ENV"
	EnvPort   = "SIGNALCAST_APP_PORT"

	EnvDBDSN  = "SIGNALCAST_DB_DSN"
	EnvDBHost = "SIGNALCAST_DB_HOST"
	EnvDBUser = "SIGNALCAST_DB_USER"
	EnvDBName = "SIGNALCAST_DB_NAME"

	EnvRedisURL = "SIGNALCAST_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
