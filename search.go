package medialibrary

import (
	"context"

	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/query"
)

// Query surface (spec §6): per-entity listings live on the repository
// accessors; this file carries the cross-entity conveniences.

// SearchAggregate bundles the per-entity matches of one pattern.
type SearchAggregate struct {
	Media     []*models.Media
	Albums    []*models.Album
	Artists   []*models.Artist
	Genres    []*models.Genre
	Shows     []*models.Show
	Playlists []*models.Playlist
}

// Search runs the FTS prefix search across every searchable entity and
// bundles the results. Sub-3-character patterns yield an empty
// aggregate (spec §6).
func (l *Library) Search(ctx context.Context, pattern string, params query.Parameters) (*SearchAggregate, error) {
	agg := &SearchAggregate{}
	var err error
	if agg.Media, err = l.media.Search(pattern, params).All(ctx); err != nil {
		return nil, l.handleError("search media", err)
	}
	if agg.Albums, err = l.albums.Search(pattern, params).All(ctx); err != nil {
		return nil, l.handleError("search albums", err)
	}
	if agg.Artists, err = l.artists.Search(pattern, params).All(ctx); err != nil {
		return nil, l.handleError("search artists", err)
	}
	if agg.Genres, err = l.genres.Search(pattern, params).All(ctx); err != nil {
		return nil, l.handleError("search genres", err)
	}
	if agg.Shows, err = l.shows.Search(pattern, params).All(ctx); err != nil {
		return nil, l.handleError("search shows", err)
	}
	if agg.Playlists, err = l.playlists.Search(pattern, params).All(ctx); err != nil {
		return nil, l.handleError("search playlists", err)
	}
	return agg, nil
}

// SearchMedia is the single-entity convenience of spec §6.
func (l *Library) SearchMedia(pattern string, params query.Parameters) *query.Query[*models.Media] {
	return l.media.Search(pattern, params)
}

// SearchAudio narrows SearchMedia to audio.
func (l *Library) SearchAudio(ctx context.Context, pattern string, params query.Parameters) ([]*models.Media, error) {
	return l.searchByType(ctx, pattern, params, models.MediaTypeAudio)
}

// SearchVideo narrows SearchMedia to video.
func (l *Library) SearchVideo(ctx context.Context, pattern string, params query.Parameters) ([]*models.Media, error) {
	return l.searchByType(ctx, pattern, params, models.MediaTypeVideo)
}

func (l *Library) searchByType(ctx context.Context, pattern string, params query.Parameters, t models.MediaType) ([]*models.Media, error) {
	all, err := l.media.Search(pattern, params).All(ctx)
	if err != nil {
		return nil, l.handleError("search media by type", err)
	}
	out := all[:0]
	for _, m := range all {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out, nil
}

// SearchPlaylists is the single-entity convenience of spec §6.
func (l *Library) SearchPlaylists(pattern string, params query.Parameters) *query.Query[*models.Playlist] {
	return l.playlists.Search(pattern, params)
}

// History returns media of mediaType (nil = all) ordered by last
// playback, most recent first.
func (l *Library) History(mediaType *models.MediaType) *query.Query[*models.Media] {
	return l.media.History(mediaType)
}

// AudioHistory is History narrowed to audio.
func (l *Library) AudioHistory() *query.Query[*models.Media] {
	t := models.MediaTypeAudio
	return l.media.History(&t)
}

// VideoHistory is History narrowed to video.
func (l *Library) VideoHistory() *query.Query[*models.Media] {
	t := models.MediaTypeVideo
	return l.media.History(&t)
}

// ClearHistory resets playback state for mediaType (nil = all).
func (l *Library) ClearHistory(ctx context.Context, mediaType *models.MediaType) error {
	return l.handleError("clear history", l.media.ClearHistory(ctx, mediaType))
}
