package config

const (
	EnvPrefix = "GIFTLOOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GIFTLOOP_DB_DSN"
	EnvDBHost = "GIFTLOOP_DB_HOST"
	EnvDBUser = "GIFTLOOP_DB_USER"
	EnvDBName = "GIFTLOOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
