package common

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvDataPath        = "DATA_PATH"
	EnvLogLevel        = "LOG_LEVEL"
	EnvMetricsFile     = "METRICS_FILE"
	EnvModelName       = "MODEL_NAME"
	EnvModelURL        = "MODEL_URL"
	EnvModelTransport  = "MODEL_TRANSPORT"
	EnvModelArgs       = "MODEL_ARGS"
	EnvProviderTimeout = "PROVIDER_TIMEOUT"
)

// Explanation environment keys
const (
	EnvSamples            = "LIME_SAMPLES"
	EnvPerturbationSize   = "LIME_PERTURBATION_SIZE"
	EnvSeed               = "LIME_SEED"
	EnvKernelWidth        = "LIME_KERNEL_WIDTH"
	EnvFeatureSelection   = "LIME_FEATURE_SELECTION"
	EnvTopKFeatures       = "LIME_TOP_K"
	EnvProximityFilter    = "LIME_PROXIMITY_FILTER"
	EnvProximityThreshold = "LIME_PROXIMITY_THRESHOLD"
	EnvProximityMinimum   = "LIME_PROXIMITY_MINIMUM"
	EnvPenalization       = "LIME_PENALIZATION"
	EnvNumericDeltas      = "LIME_NUMERIC_DELTAS"
	EnvScaleByRange       = "LIME_SCALE_BY_RANGE"
	EnvMaxRedraws         = "LIME_MAX_REDRAWS"
)

// Stability environment keys
const (
	EnvStabilityRuns            = "STABILITY_RUNS"
	EnvStabilityTopK            = "STABILITY_TOP_K"
	EnvStabilityMinTopRate      = "STABILITY_MIN_TOP_RATE"
	EnvStabilityMinPositiveRate = "STABILITY_MIN_POSITIVE_RATE"
	EnvStabilityMinNegativeRate = "STABILITY_MIN_NEGATIVE_RATE"
	EnvStabilityParallelism     = "STABILITY_PARALLELISM"
)

// Configuration defaults
const (
	DefaultDataPath        = "data"
	DefaultLogLevel        = "info"
	DefaultModelURL        = "http://localhost:8081"
	DefaultModelTransport  = TransportHTTP
	DefaultProviderTimeout = "5s"
)

// Model transports
const (
	TransportHTTP      = "http"
	TransportWebSocket = "ws"
	TransportProcess   = "process"
)

// Common error messages
const (
	ErrMsgDataPathRequired = "data path is required"
	ErrMsgModelURLRequired = "model URL is required"
)

// Validation constants
const (
	MaxSamples            = 100000
	MaxProviderTimeoutSec = 300
	MaxStabilityRuns      = 1000
)
