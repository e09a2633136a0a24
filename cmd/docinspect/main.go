// Command docinspect dumps the persisted book documents in a local data
// directory: one line per user with book, page, and photo counts plus how
// close the document sits to the size ceiling.
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/keepsakeapp/keepsake/internal/store"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		dataPath = filepath.Join(home, "Keepsake", "data")
	}

	opts := badger.DefaultOptions(filepath.Join(dataPath, "db")).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Document Inspection ===")
	fmt.Println()

	userCount := 0
	totalBooks := 0
	totalPhotos := 0

	err = db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte("doc:")
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek([]byte("doc:")); it.ValidForPrefix([]byte("doc:")); it.Next() {
			item := it.Item()
			userID := strings.TrimPrefix(string(item.Key()), "doc:")

			err := item.Value(func(val []byte) error {
				var doc store.Document
				if err := json.Unmarshal(val, &doc); err != nil {
					return err
				}

				userCount++
				pages := 0
				photos := 0
				for _, book := range doc.Books {
					pages += len(book.Memories)
					photos += book.PhotoCount()
				}
				totalBooks += len(doc.Books)
				totalPhotos += photos

				pct := float64(len(val)) / float64(store.MaxDocumentBytes) * 100
				fmt.Printf("User: %s\n", userID)
				fmt.Printf("  Books: %d, Pages: %d, Photos: %d\n", len(doc.Books), pages, photos)
				fmt.Printf("  Document: %d bytes (%.1f%% of ceiling)\n", len(val), pct)
				fmt.Printf("  Updated: %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
				fmt.Println()
				return nil
			})
			if err != nil {
				log.Printf("Error reading document for %s: %v", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating store: %v", err)
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Users: %d\n", userCount)
	fmt.Printf("Total books: %d\n", totalBooks)
	fmt.Printf("Total photos: %d\n", totalPhotos)
}
