package repositories

import (
	"babble/contract"
	"babble/domain/event"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/database"
)

// PublicationPrefix is the key prefix of every archived publication.
const PublicationPrefix = "pub:"

var (
	_ contract.IPublicationArchive = PublicationRepository{}
	_ IPublicationRepository       = PublicationRepository{}
	_ database.RowMapper           = PublicationMapper
)

// IPublicationRepository is the archive seen by readers.
type IPublicationRepository interface {
	contract.IPublicationArchive
	List(limit *int) ([]DiskPublication, error)
}

// PublicationRepository is a write-behind archive of every publication.
// The server never reads it back; List exists for offline inspection.
type PublicationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewPublicationRepository(db *badger.DB, log *slog.Logger) PublicationRepository {
	return PublicationRepository{db: db, log: log}
}

// DiskPublication is the stored form of a publication, encoded with CBOR.
type DiskPublication struct {
	ID      uuid.UUID `cbor:"1,keyasint"`
	Key     uint64    `cbor:"2,keyasint"`
	Author  string    `cbor:"3,keyasint"`
	Content string    `cbor:"4,keyasint"`
	Coarse  int64     `cbor:"5,keyasint"`
	Fine    int64     `cbor:"6,keyasint"`
}

// Store persists a publication under "pub:{fine_padded}:{uuid}".
// Fine stamps are zero padded to 19 digits so that key order is publication order.
func (r PublicationRepository) Store(p event.PublicationStored) error {
	key := fmt.Sprintf("%s%019d:%s", PublicationPrefix, p.Fine, p.ID)
	bytes, err := cbor.Marshal(fromEvent(p))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// List returns archived publications oldest first, stopping after limit entries when limit is set.
func (r PublicationRepository) List(limit *int) ([]DiskPublication, error) {
	var res []DiskPublication
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(PublicationPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit != nil && len(res) == *limit {
				r.log.Debug(fmt.Sprintf("Maximum of %d publications reached", *limit))
				break
			}
			var p DiskPublication
			err := it.Item().Value(func(value []byte) error {
				return cbor.Unmarshal(value, &p)
			})
			if err != nil {
				return err
			}
			res = append(res, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func fromEvent(p event.PublicationStored) DiskPublication {
	return DiskPublication{
		ID:      p.ID,
		Key:     uint64(p.Key),
		Author:  p.Author,
		Content: p.Content,
		Coarse:  p.Coarse,
		Fine:    p.Fine,
	}
}

// PublicationMapper decodes an archived publication for the badger debug inspector.
func PublicationMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	var p DiskPublication
	if err := cbor.Unmarshal(val, &p); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = "PUBLICATION"
	row.Timestamp = time.Unix(0, p.Fine).UTC().Format("15:04:05")
	row.EntityID = p.ID.String()[:8]
	row.Namespace = p.Author
	row.Detail = p.Content
	row.Scores = "coarse=" + strconv.FormatInt(p.Coarse, 10)
	return row
}
