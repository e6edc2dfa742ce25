package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "CLINICSTOCK"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "CLINICSTOCK_APP_ENV"
	EnvPort   = "CLINICSTOCK_APP_PORT"

	EnvDBDSN  = "CLINICSTOCK_DB_DSN"
	EnvDBHost = "CLINICSTOCK_DB_HOST"
	EnvDBUser = "CLINICSTOCK_DB_USER"
	EnvDBName = "CLINICSTOCK_DB_NAME"

	EnvRedisURL = "CLINICSTOCK_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
