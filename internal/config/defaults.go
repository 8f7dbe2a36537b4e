package config

const (
	defaultLibraryDir             = "~/.local/share/streamlet/library"
	defaultDataDir                = "~/.local/share/streamlet/data"
	defaultLogDir                 = "~/.local/share/streamlet/logs"
	defaultMinFreeMB              = 256
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultPosterQuality          = 4
	defaultPosterTimeoutSeconds   = 10
	defaultPlaceholderURL         = "/streamlet.png"
	defaultThrottleSeconds        = 2
	defaultFeedPageSize           = 12
	defaultContinueFetchLimit     = 25
	defaultBrowseFetchLimit       = 50
	defaultDiscoverTimeoutSeconds = 8
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

var defaultAcceptedTypes = []string{"video/"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Store: Store{
			MinFreeMB: defaultMinFreeMB,
		},
		Upload: Upload{
			AcceptedTypes: append([]string{}, defaultAcceptedTypes...),
		},
		Poster: Poster{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			Quality:        defaultPosterQuality,
			TimeoutSeconds: defaultPosterTimeoutSeconds,
			PlaceholderURL: defaultPlaceholderURL,
		},
		Progress: Progress{
			ThrottleSeconds: defaultThrottleSeconds,
		},
		Feed: Feed{
			PageSize:               defaultFeedPageSize,
			ContinueFetchLimit:     defaultContinueFetchLimit,
			BrowseFetchLimit:       defaultBrowseFetchLimit,
			DiscoverTimeoutSeconds: defaultDiscoverTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
