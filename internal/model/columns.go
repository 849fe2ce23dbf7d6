package model

// Column names shared by several tables.
const (
	ColID                   = "_id"
	ColPackageName          = "package_name"
	ColInputID              = "input_id"
	ColType                 = "type"
	ColChannelID            = "channel_id"
	ColTitle                = "title"
	ColBrowsable            = "browsable"
	ColSearchable           = "searchable"
	ColLocked               = "locked"
	ColLogo                 = "logo"
	ColStartTime            = "start_time_utc_millis"
	ColEndTime              = "end_time_utc_millis"
	ColBroadcastGenre       = "broadcast_genre"
	ColCanonicalGenre       = "canonical_genre"
	ColSeasonNumber         = "season_number"
	ColSeasonDisplayNumber  = "season_display_number"
	ColEpisodeNumber        = "episode_number"
	ColEpisodeDisplayNumber = "episode_display_number"
	ColWatchStartTime       = "watch_start_time_utc_millis"
	ColWatchEndTime         = "watch_end_time_utc_millis"
	ColSessionToken         = "session_token"
	ColConsolidated         = "consolidated"
)

// Channel type and service type values.
const (
	ChannelTypeOther      = "TYPE_OTHER"
	ChannelTypePreview    = "TYPE_PREVIEW"
	ServiceTypeAudioVideo = "SERVICE_TYPE_AUDIO_VIDEO"
)
