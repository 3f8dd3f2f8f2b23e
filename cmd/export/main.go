package main

import (
	"context"
	"flag"
	"os"
	"time"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/firestore"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"google.golang.org/api/iterator"

	"github.com/klipach/connectsphere/contract"
	"github.com/klipach/connectsphere/logger"
)

const (
	dbDriver        = "postgres"
	defaultDBSource = "user=user password=pass dbname=connectsphere host=127.0.0.1 port=5432 sslmode=disable"
)

var schema = `
CREATE TABLE IF NOT EXISTS profile (
	uid TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	age INT NOT NULL,
	interests TEXT[] NOT NULL,
	email TEXT NOT NULL,
	exported_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS post (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	author_name TEXT NOT NULL,
	author_uid TEXT NOT NULL,
	created_at TIMESTAMP,
	exported_at TIMESTAMP NOT NULL
);`

// GOOGLE_CLOUD_PROJECT=*** go run cmd/export/main.go -dsn "..."
func main() {
	ctx := context.Background()
	logger, flush := logger.New(ctx)
	defer flush()

	dsnPtr := flag.String("dsn", defaultDBSource, "postgres connection string")
	flag.Parse()

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" && metadata.OnGCE() {
		var err error
		projectID, err = metadata.ProjectIDWithContext(ctx)
		if err != nil {
			logger.Fatalf("error resolving project id: %v", err)
		}
	}
	if projectID == "" {
		logger.Fatalf("GOOGLE_CLOUD_PROJECT is not set")
	}

	firestoreClient, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		logger.Fatalf("error creating Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	db, err := sqlx.ConnectContext(ctx, dbDriver, *dsnPtr)
	if err != nil {
		logger.Fatalf("error connecting to postgres: %v", err)
	}
	defer db.Close()

	db.MustExecContext(ctx, schema)

	profiles, err := exportProfiles(ctx, firestoreClient, db)
	if err != nil {
		logger.Fatalf("error exporting profiles: %v", err)
	}
	posts, err := exportPosts(ctx, firestoreClient, db)
	if err != nil {
		logger.Fatalf("error exporting posts: %v", err)
	}
	logger.Printf("exported %d profiles, %d posts", profiles, posts)
}

func exportProfiles(ctx context.Context, fs *firestore.Client, db *sqlx.DB) (int, error) {
	now := time.Now().UTC()
	count := 0

	iter := fs.Collection(contract.UsersCollection).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, err
		}

		var profile contract.UserProfile
		if err := doc.DataTo(&profile); err != nil {
			return count, err
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO profile (uid, name, age, interests, email, exported_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (uid) DO UPDATE SET
				name = EXCLUDED.name,
				age = EXCLUDED.age,
				interests = EXCLUDED.interests,
				email = EXCLUDED.email,
				exported_at = EXCLUDED.exported_at`,
			doc.Ref.ID, profile.Name, profile.Age, pq.Array(profile.Interests), profile.Email, now,
		)
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func exportPosts(ctx context.Context, fs *firestore.Client, db *sqlx.DB) (int, error) {
	now := time.Now().UTC()
	count := 0

	iter := fs.Collection(contract.PostsCollection).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, err
		}

		var post contract.Post
		if err := doc.DataTo(&post); err != nil {
			return count, err
		}

		// a post caught between the client write and the server commit
		// has no timestamp yet; archive it as NULL
		var createdAt any
		if !post.Timestamp.IsZero() {
			createdAt = post.Timestamp.UTC()
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO post (id, content, author_name, author_uid, created_at, exported_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				author_name = EXCLUDED.author_name,
				author_uid = EXCLUDED.author_uid,
				created_at = EXCLUDED.created_at,
				exported_at = EXCLUDED.exported_at`,
			doc.Ref.ID, post.Content, post.AuthorName, post.AuthorUID, createdAt, now,
		)
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
