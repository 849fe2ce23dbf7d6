package model

// Channel is a row of the channels table.
type Channel struct {
	ID                    int64   `col:"_id"`
	PackageName           string  `col:"package_name"` // Owning package
	InputID               string  `col:"input_id"`     // Empty for preview channels
	Type                  string  `col:"type"`
	ServiceType           string  `col:"service_type"`
	OriginalNetworkID     int64   `col:"original_network_id"`
	TransportStreamID     int64   `col:"transport_stream_id"`
	ServiceID             int64   `col:"service_id"`
	DisplayNumber         *string `col:"display_number"`
	DisplayName           *string `col:"display_name"`
	NetworkAffiliation    *string `col:"network_affiliation"`
	Description           *string `col:"description"`
	VideoFormat           *string `col:"video_format"`
	Browsable             bool    `col:"browsable"`
	Searchable            bool    `col:"searchable"`
	Locked                bool    `col:"locked"` // Parental control lock
	AppLinkIconURI        *string `col:"app_link_icon_uri"`
	AppLinkPosterArtURI   *string `col:"app_link_poster_art_uri"`
	AppLinkText           *string `col:"app_link_text"`
	AppLinkColor          *int64  `col:"app_link_color"`
	AppLinkIntentURI      *string `col:"app_link_intent_uri"`
	InternalProviderData  []byte  `col:"internal_provider_data"` // Opaque to the store
	InternalProviderFlag1 *int64  `col:"internal_provider_flag1"`
	InternalProviderFlag2 *int64  `col:"internal_provider_flag2"`
	InternalProviderFlag3 *int64  `col:"internal_provider_flag3"`
	InternalProviderFlag4 *int64  `col:"internal_provider_flag4"`
	Logo                  []byte  `col:"logo"` // PNG, at most 256px on its long side
	VersionNumber         *int64  `col:"version_number"`
	Transient             bool    `col:"transient"`
	InternalProviderID    *string `col:"internal_provider_id"`
}

// Program is a row of the programs table.
type Program struct {
	ID                    int64   `col:"_id"`
	PackageName           string  `col:"package_name"`
	ChannelID             *int64  `col:"channel_id"`
	Title                 *string `col:"title"`
	SeasonDisplayNumber   *string `col:"season_display_number"`
	SeasonTitle           *string `col:"season_title"`
	EpisodeDisplayNumber  *string `col:"episode_display_number"`
	EpisodeTitle          *string `col:"episode_title"`
	StartTimeUTCMillis    *int64  `col:"start_time_utc_millis"`
	EndTimeUTCMillis      *int64  `col:"end_time_utc_millis"`
	BroadcastGenre        *string `col:"broadcast_genre"` // Free text, encoded list
	CanonicalGenre        *string `col:"canonical_genre"` // Encoded list from the fixed vocabulary
	ShortDescription      *string `col:"short_description"`
	LongDescription       *string `col:"long_description"`
	VideoWidth            *int64  `col:"video_width"`
	VideoHeight           *int64  `col:"video_height"`
	AudioLanguage         *string `col:"audio_language"`
	ContentRating         *string `col:"content_rating"`
	PosterArtURI          *string `col:"poster_art_uri"`
	ThumbnailURI          *string `col:"thumbnail_uri"`
	Searchable            bool    `col:"searchable"`
	RecordingProhibited   bool    `col:"recording_prohibited"`
	InternalProviderData  []byte  `col:"internal_provider_data"`
	InternalProviderFlag1 *int64  `col:"internal_provider_flag1"`
	InternalProviderFlag2 *int64  `col:"internal_provider_flag2"`
	InternalProviderFlag3 *int64  `col:"internal_provider_flag3"`
	InternalProviderFlag4 *int64  `col:"internal_provider_flag4"`
	ReviewRatingStyle     *int64  `col:"review_rating_style"`
	ReviewRating          *string `col:"review_rating"`
	VersionNumber         *int64  `col:"version_number"`
}

// WatchedProgram is an entry of the watch history log.
type WatchedProgram struct {
	ID                      int64   `col:"_id"`
	PackageName             string  `col:"package_name"`
	WatchStartTimeUTCMillis int64   `col:"watch_start_time_utc_millis"`
	WatchEndTimeUTCMillis   int64   `col:"watch_end_time_utc_millis"`
	ChannelID               *int64  `col:"channel_id"`
	Title                   *string `col:"title"`
	StartTimeUTCMillis      *int64  `col:"start_time_utc_millis"`
	EndTimeUTCMillis        *int64  `col:"end_time_utc_millis"`
	Description             *string `col:"description"`
	TuneParams              *string `col:"tune_params"`
	SessionToken            string  `col:"session_token"`
	Consolidated            bool    `col:"consolidated"` // Only consolidated rows are queryable
}

// RecordedProgram is a row of the recorded_programs table.
type RecordedProgram struct {
	ID                           int64   `col:"_id"`
	PackageName                  string  `col:"package_name"`
	InputID                      string  `col:"input_id"`
	ChannelID                    *int64  `col:"channel_id"` // NULL once the channel is deleted
	Title                        *string `col:"title"`
	SeasonDisplayNumber          *string `col:"season_display_number"`
	SeasonTitle                  *string `col:"season_title"`
	EpisodeDisplayNumber         *string `col:"episode_display_number"`
	EpisodeTitle                 *string `col:"episode_title"`
	StartTimeUTCMillis           *int64  `col:"start_time_utc_millis"`
	EndTimeUTCMillis             *int64  `col:"end_time_utc_millis"`
	BroadcastGenre               *string `col:"broadcast_genre"`
	CanonicalGenre               *string `col:"canonical_genre"`
	ShortDescription             *string `col:"short_description"`
	LongDescription              *string `col:"long_description"`
	VideoWidth                   *int64  `col:"video_width"`
	VideoHeight                  *int64  `col:"video_height"`
	AudioLanguage                *string `col:"audio_language"`
	ContentRating                *string `col:"content_rating"`
	PosterArtURI                 *string `col:"poster_art_uri"`
	ThumbnailURI                 *string `col:"thumbnail_uri"`
	Searchable                   bool    `col:"searchable"`
	RecordingDataURI             *string `col:"recording_data_uri"`
	RecordingDataBytes           *int64  `col:"recording_data_bytes"`
	RecordingDurationMillis      *int64  `col:"recording_duration_millis"`
	RecordingExpireTimeUTCMillis *int64  `col:"recording_expire_time_utc_millis"`
	InternalProviderData         []byte  `col:"internal_provider_data"`
	InternalProviderFlag1        *int64  `col:"internal_provider_flag1"`
	InternalProviderFlag2        *int64  `col:"internal_provider_flag2"`
	InternalProviderFlag3        *int64  `col:"internal_provider_flag3"`
	InternalProviderFlag4        *int64  `col:"internal_provider_flag4"`
	VersionNumber                *int64  `col:"version_number"`
	ReviewRatingStyle            *int64  `col:"review_rating_style"`
	ReviewRating                 *string `col:"review_rating"`
}

// Recommendation holds the columns shared by preview and watch-next programs.
type Recommendation struct {
	ID                         int64   `col:"_id"`
	PackageName                string  `col:"package_name"`
	Title                      *string `col:"title"`
	SeasonDisplayNumber        *string `col:"season_display_number"`
	SeasonTitle                *string `col:"season_title"`
	EpisodeDisplayNumber       *string `col:"episode_display_number"`
	EpisodeTitle               *string `col:"episode_title"`
	CanonicalGenre             *string `col:"canonical_genre"`
	ShortDescription           *string `col:"short_description"`
	LongDescription            *string `col:"long_description"`
	VideoWidth                 *int64  `col:"video_width"`
	VideoHeight                *int64  `col:"video_height"`
	AudioLanguage              *string `col:"audio_language"`
	ContentRating              *string `col:"content_rating"`
	PosterArtURI               *string `col:"poster_art_uri"`
	ThumbnailURI               *string `col:"thumbnail_uri"`
	Searchable                 bool    `col:"searchable"`
	InternalProviderData       []byte  `col:"internal_provider_data"`
	InternalProviderFlag1      *int64  `col:"internal_provider_flag1"`
	InternalProviderFlag2      *int64  `col:"internal_provider_flag2"`
	InternalProviderFlag3      *int64  `col:"internal_provider_flag3"`
	InternalProviderFlag4      *int64  `col:"internal_provider_flag4"`
	VersionNumber              *int64  `col:"version_number"`
	InternalProviderID         *string `col:"internal_provider_id"`
	PreviewVideoURI            *string `col:"preview_video_uri"`
	LastPlaybackPositionMillis *int64  `col:"last_playback_position_millis"`
	DurationMillis             *int64  `col:"duration_millis"`
	IntentURI                  *string `col:"intent_uri"`
	Transient                  bool    `col:"transient"`
	Type                       int64   `col:"type"` // Required on insert
	PosterArtAspectRatio       *int64  `col:"poster_art_aspect_ratio"`
	ThumbnailAspectRatio       *int64  `col:"thumbnail_aspect_ratio"`
	LogoURI                    *string `col:"logo_uri"`
	Availability               *int64  `col:"availability"`
	StartingPrice              *string `col:"starting_price"`
	OfferPrice                 *string `col:"offer_price"`
	ReleaseDate                *string `col:"release_date"`
	ItemCount                  *int64  `col:"item_count"`
	Live                       bool    `col:"live"`
	InteractionType            *int64  `col:"interaction_type"`
	InteractionCount           *int64  `col:"interaction_count"`
	Author                     *string `col:"author"`
	ReviewRatingStyle          *int64  `col:"review_rating_style"`
	ReviewRating               *string `col:"review_rating"`
	Browsable                  bool    `col:"browsable"`
	ContentID                  *string `col:"content_id"`
}

// PreviewProgram is a row of the preview_programs table.
type PreviewProgram struct {
	Recommendation
	ChannelID *int64 `col:"channel_id"`
	Weight    *int64 `col:"weight"`
}

// WatchNextProgram is a row of the watch_next_programs table.
type WatchNextProgram struct {
	Recommendation
	WatchNextType               *int64 `col:"watch_next_type"`
	LastEngagementTimeUTCMillis *int64 `col:"last_engagement_time_utc_millis"`
}
