// Package services implements the external collaborators of the download pipeline: a playlist
// provider, remote searchers and the audio downloader.
//
// # Spotify
//
// [SpotifyService] authenticates with the client credentials flow ([clientcredentials.Config]); the
// returned client refreshes its token transparently. Playlist pages are read 100 items at a time with a
// fields filter, and artist genres are looked up in batches of 50 through [spotify.Client]. All calls
// share one [rate.Limiter].
//
// # YouTube Data API
//
// [YouTubeService] searches with an API key. A search.list call yields up to ten video ids, and a
// videos.list call adds durations parsed from ISO-8601 ([ParseISODuration]).
//
// # yt-dlp
//
// [YtdlpService] is both a [Searcher] (flat "ytsearch10:" dumps decoded with gjson) and a
// [Downloader] (best audio, extracted to mp3 at the requested bitrate). [FindOutput] resolves the
// produced file from the output template.
//
// # Error Handling
//
// Services wrap typed errors from the shared package:
//   - [shared.ErrMissingCredentials] : client id, secret or api key missing
//   - [shared.ErrAuthFailed] : Spotify rejected the credentials
//   - [shared.ErrPlaylistNotFound] : playlist id not found
//   - [shared.ErrAPIRequest] : HTTP or search request failed
//   - [shared.ErrDownload] : yt-dlp failed or produced no mp3
package services
