package database

// Config holds configuration for the repair journal database.
type Config struct {
	// Driver selects the backend (none, mysql, sqlite). none disables the journal.
	Driver string `mapstructure:"driver" default:"none"`
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name.
	Name string `mapstructure:"name" default:"chunk_mender"`
	// Path is the sqlite database file. ":memory:" keeps it in memory.
	Path string `mapstructure:"path" default:"chunk-mender.db"`
	// TimeoutSeconds bounds connection setup and I/O.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"10"`
}

const (
	DriverNone   = "none"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Enabled reports whether a journal backend is configured.
func (c Config) Enabled() bool {
	return c.Driver != "" && c.Driver != DriverNone
}
