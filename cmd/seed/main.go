package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"github.com/klipach/connectsphere/chat"
	"github.com/klipach/connectsphere/contract"
	"github.com/klipach/connectsphere/logger"
)

type seedUser struct {
	name      string
	age       int
	interests []string
	email     string
	password  string
}

var seedUsers = []seedUser{
	{"Alice", 29, []string{"hiking", "photography", "coffee"}, "alice@example.com", "alice-seed-1"},
	{"Bob", 34, []string{"coffee", "chess", "running"}, "bob@example.com", "bob-seed-1"},
	{"Carol", 26, []string{"photography", "travel", "cooking"}, "carol@example.com", "carol-seed-1"},
	{"Dave", 41, []string{"chess", "history", "hiking"}, "dave@example.com", "dave-seed-1"},
}

// OPENAI_API_KEY=*** go run cmd/seed/main.go -credentials ./service_account_key.json
func main() {
	ctx := context.Background()
	logger, flush := logger.New(ctx)
	defer flush()

	credentialsPtr := flag.String("credentials", "./service_account_key.json", "path to a service account key file")
	postsPtr := flag.Int("posts", 2, "demo posts to create per user")
	flag.Parse()

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(*credentialsPtr))
	if err != nil {
		logger.Fatalf("error initializing app: %v", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Fatalf("error getting Auth client: %v", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		logger.Fatalf("error getting Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	openaiClient := openai.NewClient(os.Getenv("OPENAI_API_KEY"))

	for _, u := range seedUsers {
		params := (&fbauth.UserToCreate{}).
			Email(u.email).
			Password(u.password).
			DisplayName(u.name)

		record, err := authClient.CreateUser(ctx, params)
		if err != nil {
			if existing, lookupErr := authClient.GetUserByEmail(ctx, u.email); lookupErr == nil {
				logger.Printf("user %s already exists, reusing uid %s", u.email, existing.UID)
				record = existing
			} else {
				logger.Fatalf("error creating user %s: %v", u.email, err)
			}
		}

		profile := contract.UserProfile{
			UID:       record.UID,
			Name:      u.name,
			Age:       u.age,
			Interests: u.interests,
			Email:     u.email,
		}
		if _, err := firestoreClient.Collection(contract.UsersCollection).Doc(record.UID).Set(ctx, profile); err != nil {
			logger.Fatalf("error writing profile for %s: %v", u.email, err)
		}
		logger.Printf("seeded user %s (%s)", u.name, record.UID)

		for i := 0; i < *postsPtr; i++ {
			content := demoPost(ctx, openaiClient, u, i)
			post := contract.Post{
				Content:    content,
				AuthorName: u.name,
				AuthorUID:  record.UID,
			}
			if _, _, err := firestoreClient.Collection(contract.PostsCollection).Add(ctx, post); err != nil {
				logger.Fatalf("error writing post for %s: %v", u.email, err)
			}
		}
		logger.Printf("seeded %d posts for %s", *postsPtr, u.name)
	}

	// a seeded room between the first two users so chat has history to show
	if len(seedUsers) >= 2 {
		a, _ := authClient.GetUserByEmail(ctx, seedUsers[0].email)
		b, _ := authClient.GetUserByEmail(ctx, seedUsers[1].email)
		if a != nil && b != nil {
			roomID := chat.RoomID(a.UID, b.UID)
			msg := contract.ChatMessage{
				Text:     fmt.Sprintf("Hey %s, I saw we both like %s!", seedUsers[1].name, seedUsers[0].interests[0]),
				SenderID: a.UID,
			}
			messages := firestoreClient.
				Collection(contract.ChatsCollection).
				Doc(roomID).
				Collection(contract.MessagesCollection)
			if _, _, err := messages.Add(ctx, msg); err != nil {
				logger.Fatalf("error writing message to room %s: %v", roomID, err)
			}
			logger.Printf("seeded room %s", roomID)
		}
	}
}

// demoPost asks the model for a short post in the user's voice and falls back
// to a canned line when the API key is missing or the call fails.
func demoPost(ctx context.Context, client *openai.Client, u seedUser, n int) string {
	fallback := fmt.Sprintf("Spent the weekend on %s again. %d/10 would recommend.", u.interests[n%len(u.interests)], 8+n%3)

	if os.Getenv("OPENAI_API_KEY") == "" {
		return fallback
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(
					"Write a single casual social media post (max 2 sentences, no hashtags) by %s, age %d, who is into %s.",
					u.name, u.age, strings.Join(u.interests, ", "),
				),
			},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		return fallback
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
