package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"trip-hub/domain"
)

// ExperienceArchive is the durable full-text index over every experience
// ever recorded. The live context only keeps the last 10 entries per group;
// the archive answers keyword searches over everything older.
type ExperienceArchive struct {
	mu     sync.Mutex
	writer *bluge.Writer
}

// ArchivedExperience is one search hit.
type ArchivedExperience struct {
	GroupID      string
	User         string
	Message      string
	Destinations []string
	Activities   []string
	At           time.Time
}

func NewExperienceArchive(writer *bluge.Writer) *ExperienceArchive {
	return &ExperienceArchive{writer: writer}
}

// Index adds one experience entry to the archive.
func (a *ExperienceArchive) Index(groupID string, entry domain.Experience) error {
	doc := bluge.NewDocument(uuid.NewString())
	doc.AddField(bluge.NewKeywordField("group", groupID).StoreValue())
	doc.AddField(bluge.NewKeywordField("user", entry.User).StoreValue())
	doc.AddField(bluge.NewTextField("message", entry.Message).StoreValue())
	doc.AddField(bluge.NewTextField("destinations", strings.Join(entry.Destinations, ", ")).StoreValue())
	doc.AddField(bluge.NewTextField("activities", strings.Join(entry.Activities, ", ")).StoreValue())
	doc.AddField(bluge.NewDateTimeField("at", entry.At).StoreValue())

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writer.Update(doc.ID(), doc)
}

// Search returns up to limit entries of one group matching the query in any
// of message, destinations or activities.
func (a *ExperienceArchive) Search(ctx context.Context, groupID, query string, limit int) ([]ArchivedExperience, error) {
	reader, err := a.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	textQuery := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField("message")).
		AddShould(bluge.NewMatchQuery(query).SetField("destinations")).
		AddShould(bluge.NewMatchQuery(query).SetField("activities"))
	fullQuery := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(groupID).SetField("group")).
		AddMust(textQuery)

	request := bluge.NewTopNSearch(limit, fullQuery)
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var results []ArchivedExperience
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit ArchivedExperience
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "group":
				hit.GroupID = string(value)
			case "user":
				hit.User = string(value)
			case "message":
				hit.Message = string(value)
			case "destinations":
				hit.Destinations = splitList(string(value))
			case "activities":
				hit.Activities = splitList(string(value))
			case "at":
				if t, err := bluge.DecodeDateTime(value); err == nil {
					hit.At = t
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		results = append(results, hit)
	}
	return results, nil
}

func splitList(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ", ")
	return parts
}
