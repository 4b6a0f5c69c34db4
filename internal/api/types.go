package api

import "time"

// GeneralSettings is the "general" settings section.
type GeneralSettings struct {
	ServerName string `json:"server_name"`
	APIPort    int    `json:"api_port"`
}

// Delays holds the stream pause delays in seconds.
type Delays struct {
	EpisodeEnd int `json:"episode_end"`
	MovieEnd   int `json:"movie_end"`
}

// PlaybackSettings is the "playback" settings section.
type PlaybackSettings struct {
	Delays Delays `json:"delays"`
}

// LimitSettings is the "limits" settings section.
type LimitSettings struct {
	UploadKbps    int `json:"upload_kbps"`
	DownloadKbps  int `json:"download_kbps"`
	PerStreamKbps int `json:"per_stream_kbps"`
}

// Stream is one active stream as reported by the server.
type Stream struct {
	ID          string `json:"id"`
	User        string `json:"user"`
	Title       string `json:"title"`
	BitrateKbps int    `json:"bitrate_kbps"`
	State       string `json:"state"` // "playing", "paused", "throttled"
}

// Sample is one bandwidth measurement.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	RxKbps    int       `json:"rx_kbps"`
	TxKbps    int       `json:"tx_kbps"`
}
