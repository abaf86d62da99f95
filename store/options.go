package store

const (
	defaultGeneCapacity              = 1 << 15
	defaultCellCapacity              = 1 << 15
	defaultCellMetaDataNameCapacity  = 1 << 8
	defaultCellMetaDataValueCapacity = 1 << 12
)

type options struct {
	geneCapacity              int
	cellCapacity              int
	cellMetaDataNameCapacity  int
	cellMetaDataValueCapacity int
	logger                    *Logger
	metrics                   MetricsCollector
}

// Option configures Create/Open behavior.
type Option func(*options)

// WithGeneCapacity sets the maximum number of distinct genes a store
// created with this option can hold. Only meaningful on Create.
func WithGeneCapacity(n int) Option {
	return func(o *options) { o.geneCapacity = n }
}

// WithCellCapacity sets the maximum number of distinct cells. Only
// meaningful on Create.
func WithCellCapacity(n int) Option {
	return func(o *options) { o.cellCapacity = n }
}

// WithCellMetaDataNameCapacity bounds the interning table for meta-data
// field names. Only meaningful on Create.
func WithCellMetaDataNameCapacity(n int) Option {
	return func(o *options) { o.cellMetaDataNameCapacity = n }
}

// WithCellMetaDataValueCapacity bounds the interning table for meta-data
// values. Only meaningful on Create.
func WithCellMetaDataValueCapacity(n int) Option {
	return func(o *options) { o.cellMetaDataValueCapacity = n }
}

// WithLogger configures structured logging. Pass nil for NoopLogger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector. Pass nil to
// disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetrics{}
		}
		o.metrics = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		geneCapacity:              defaultGeneCapacity,
		cellCapacity:              defaultCellCapacity,
		cellMetaDataNameCapacity:  defaultCellMetaDataNameCapacity,
		cellMetaDataValueCapacity: defaultCellMetaDataValueCapacity,
		logger:                    NoopLogger(),
		metrics:                   NoopMetrics{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
