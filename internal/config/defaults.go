package config

const (
	defaultDataDir                = "~/.local/share/vodmill"
	defaultStagingDir             = "~/.local/share/vodmill/staging"
	defaultLogDir                 = "~/.local/share/vodmill/logs"
	defaultAPIBind                = "127.0.0.1:7985"
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultSegmentSeconds         = 6
	defaultEncodeTimeoutMinutes   = 30
	defaultThumbnailOffsetSeconds = 3
	defaultDownloadAttempts       = 3
	defaultRetryDelaySeconds      = 2
	defaultPresignExpirySeconds   = 900
	defaultCallbackTimeoutSeconds = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Storage: Storage{
			PresignExpirySeconds: defaultPresignExpirySeconds,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:           defaultFFmpegBinary,
			FFprobeBinary:          defaultFFprobeBinary,
			SegmentSeconds:         defaultSegmentSeconds,
			EncodeTimeoutMinutes:   defaultEncodeTimeoutMinutes,
			ThumbnailOffsetSeconds: defaultThumbnailOffsetSeconds,
		},
		Transfer: Transfer{
			DownloadAttempts:  defaultDownloadAttempts,
			RetryDelaySeconds: defaultRetryDelaySeconds,
		},
		Callback: Callback{
			TimeoutSeconds: defaultCallbackTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
