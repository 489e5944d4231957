package connection

// SSHConfig holds SSH tunnel details
type SSHConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	KeyPath  string `json:"keyPath"`
	// KnownHostsPath pins the server key. Empty accepts any host key.
	KnownHostsPath string `json:"knownHostsPath,omitempty"`
}

// ConnectionConfig holds database connection details including SSH
type ConnectionConfig struct {
	Type     string    `json:"type"` // mysql, mariadb, postgres, sqlite, sqlserver
	Host     string    `json:"host"` // sqlite: database file path
	Port     int       `json:"port"`
	User     string    `json:"user"`
	Password string    `json:"password"`
	Database string    `json:"database"`
	Timeout  int       `json:"timeout,omitempty"` // seconds
	UseSSH   bool      `json:"useSSH"`
	SSH      SSHConfig `json:"ssh"`
	RedisDB  int       `json:"redisDB,omitempty"`
}

// LockConfig selects the single-flight guard used to keep two sync runs
// from working on the same database pair at once.
type LockConfig struct {
	Backend    string           `json:"backend,omitempty"` // memory (default) or redis
	Redis      ConnectionConfig `json:"redis,omitempty"`
	TTLSeconds int              `json:"ttlSeconds,omitempty"`
}

// SyncSettings is the static configuration read once at process start.
type SyncSettings struct {
	Local        ConnectionConfig    `json:"local"`
	Online       ConnectionConfig    `json:"online"`
	Tables       []string            `json:"tables,omitempty"`
	Dependencies map[string][]string `json:"dependencies,omitempty"`
	BatchSize    int                 `json:"batchSize,omitempty"`
	Lock         LockConfig          `json:"lock,omitempty"`
}

// QueryResult is the envelope App methods hand back to the command line.
type QueryResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
