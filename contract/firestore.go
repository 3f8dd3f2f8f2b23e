package contract

import "time"

const (
	UsersCollection = "users"
	PostsCollection = "posts"
	ChatsCollection = "chats"

	// MessagesCollection is the sub-collection of a chat room document
	// holding that room's messages.
	MessagesCollection = "messages"
)

// UserProfile is the users/{uid} document. Written once via a keyed
// upsert at signup; the uid field always equals the document id.
type UserProfile struct {
	UID       string   `firestore:"uid"`
	Name      string   `firestore:"name"`
	Age       int      `firestore:"age"`
	Interests []string `firestore:"interests"`
	Email     string   `firestore:"email"`
}

// Post is a posts/{autoId} document. AuthorName is a denormalized copy
// of the author's display name at posting time. Timestamp is assigned
// by the server at commit; until the listener redelivers the committed
// document it decodes as the zero time.
type Post struct {
	ID         string    `firestore:"-"`
	Content    string    `firestore:"content"`
	AuthorName string    `firestore:"authorName"`
	AuthorUID  string    `firestore:"authorUid"`
	Timestamp  time.Time `firestore:"timestamp,serverTimestamp"`
}

// ChatMessage is a chats/{roomId}/messages/{autoId} document.
type ChatMessage struct {
	Text      string    `firestore:"text"`
	SenderID  string    `firestore:"senderId"`
	Timestamp time.Time `firestore:"timestamp,serverTimestamp"`
}
