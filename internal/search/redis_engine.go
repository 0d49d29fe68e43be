package search

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisEngine keeps an inverted index in Redis: one set of post ids per
// lowercased token, plus a JSON document per post. Search intersects the
// token sets. Good enough for exact-word queries on a blog-sized corpus;
// no stemming, no ranking beyond insertion order.
type redisEngine struct{ rdb *redis.Client }

func NewRedisEngine(rdb *redis.Client) Engine { return &redisEngine{rdb: rdb} }

const (
	docKeyPrefix   = "search:doc:"   // search:doc:<id> -> JSON Doc
	tokenKeyPrefix = "search:token:" // search:token:<word> -> set of ids
	docTokensKey   = "search:terms:" // search:terms:<id> -> set of words the doc was indexed under
)

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// tokenize lowercases and splits text into indexable words, dropping
// single-character fragments.
func tokenize(text string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, w := range tokenSplit.Split(strings.ToLower(text), -1) {
		if len(w) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func (e *redisEngine) IndexPost(ctx context.Context, doc Doc) error {
	// Reindexing drops stale tokens first so edits do not leave the old
	// words pointing at the post.
	if err := e.RemovePost(ctx, doc.ID); err != nil {
		return err
	}

	id := doc.ID.String()
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tokens := tokenize(doc.Title + " " + doc.Snippet)

	pipe := e.rdb.TxPipeline()
	pipe.Set(ctx, docKeyPrefix+id, payload, 0)
	for _, t := range tokens {
		pipe.SAdd(ctx, tokenKeyPrefix+t, id)
		pipe.SAdd(ctx, docTokensKey+id, t)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (e *redisEngine) RemovePost(ctx context.Context, id uuid.UUID) error {
	key := id.String()
	tokens, err := e.rdb.SMembers(ctx, docTokensKey+key).Result()
	if err != nil {
		return err
	}
	pipe := e.rdb.TxPipeline()
	for _, t := range tokens {
		pipe.SRem(ctx, tokenKeyPrefix+t, key)
	}
	pipe.Del(ctx, docTokensKey+key, docKeyPrefix+key)
	_, err = pipe.Exec(ctx)
	return err
}

func (e *redisEngine) Search(ctx context.Context, q Query) ([]Doc, int64, error) {
	tokens := tokenize(q.Text)
	if len(tokens) == 0 {
		return []Doc{}, 0, nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = tokenKeyPrefix + t
	}
	ids, err := e.rdb.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(ids))

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(ids) {
		return []Doc{}, total, nil
	}
	end := start + size
	if end > len(ids) {
		end = len(ids)
	}

	out := []Doc{}
	for _, id := range ids[start:end] {
		raw, err := e.rdb.Get(ctx, docKeyPrefix+id).Bytes()
		if err != nil {
			// A doc deleted between SINTER and GET is skipped, not fatal.
			continue
		}
		var d Doc
		if err := json.Unmarshal(raw, &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, total, nil
}
