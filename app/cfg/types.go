package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	FetchConcurrency  int
	APIAccessKey      string

	// Publishing
	KafkaBrokers []string
	KafkaTopic   string

	// Application metadata
	UserAgent string
	Timezone  string
	LogLevel  string
	LogFormat string
	Debug     bool
	Version   string
}

// KafkaEnabled reports whether alerts should be published to Kafka.
func (c *Cfg) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
