package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"adboard/market/internal/db"
	"adboard/market/internal/models"
)

const (
	sessionKeyPrefix     = "session:"
	sessionChangeChannel = "session:changes"
)

var (
	// ErrInvalidCredentials is returned when the email is malformed or the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSignInCancelled is returned when the caller abandons the sign-in before it completes.
	ErrSignInCancelled = errors.New("sign-in cancelled")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SessionChangeFunc receives the identity of a page session after every change.
// A nil identity means signed out.
type SessionChangeFunc = func(identity *models.Identity)

// SessionProvider is the identity provider. Accounts live in MongoDB, the token of
// every signed-in page session lives in Redis, and changes are broadcast over Redis
// pub/sub so that every API instance can mirror them.
type SessionProvider struct {
	users     *mongo.Collection
	rdb       *redis.Client
	jwtSecret string
	ttl       time.Duration

	mu        sync.RWMutex
	nextID    uint64
	observers map[string]map[uint64]SessionChangeFunc
}

// NewSessionProvider creates a SessionProvider.
func NewSessionProvider(database *mongo.Database, usersCollection string, rdb *redis.Client, jwtSecret string, ttl time.Duration) *SessionProvider {
	return &SessionProvider{
		users:     database.Collection(usersCollection),
		rdb:       rdb,
		jwtSecret: jwtSecret,
		ttl:       ttl,
		observers: make(map[string]map[uint64]SessionChangeFunc),
	}
}

// SignIn authenticates an email and password for a page session. An unknown
// email is registered on the spot (sign-in-or-up).
func (p *SessionProvider) SignIn(ctx context.Context, pageID string, creds models.Credentials) (*models.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if !emailRegex.MatchString(email) || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := p.findOrCreateUser(ctx, email, creds)
	if err != nil {
		return nil, cancelled(ctx, err)
	}
	if !CheckPasswordHash(creds.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := GenerateJWT(user, p.jwtSecret, p.ttl)
	if err != nil {
		return nil, err
	}
	if err := p.rdb.Set(ctx, sessionKey(pageID), token, p.ttl).Err(); err != nil {
		return nil, cancelled(ctx, fmt.Errorf("failed to persist session: %w", err))
	}
	p.publish(ctx, pageID)

	return &models.Identity{
		UserID:      user.ID.Hex(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Token:       token,
	}, nil
}

func (p *SessionProvider) findOrCreateUser(ctx context.Context, email string, creds models.Credentials) (*models.User, error) {
	user, err := p.findByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	hash, err := HashPassword(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	displayName := strings.TrimSpace(creds.DisplayName)
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}
	now := time.Now().UTC()
	newUser := &models.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result, err := p.users.InsertOne(ctx, newUser)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			// Registered concurrently; the existing account decides.
			return p.findByEmail(ctx, email)
		}
		return nil, fmt.Errorf("error inserting user %s: %w", email, err)
	}
	newUser.ID = objectID(result.InsertedID)
	log.WithField("email", email).Info("Registered new user on first sign-in")
	return newUser, nil
}

func (p *SessionProvider) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := db.Try(func() error {
		return p.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// SignOut ends the provider session of a page session.
func (p *SessionProvider) SignOut(ctx context.Context, pageID string) error {
	if err := p.rdb.Del(ctx, sessionKey(pageID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	p.publish(ctx, pageID)
	return nil
}

// Current returns the identity persisted for a page session, or nil when signed out.
func (p *SessionProvider) Current(ctx context.Context, pageID string) (*models.Identity, error) {
	token, err := p.rdb.Get(ctx, sessionKey(pageID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	claims, err := ValidateJWT(token, p.jwtSecret)
	if err != nil {
		log.WithField("page_session", pageID).Warnf("Discarding persisted session: %v", err)
		_ = p.rdb.Del(ctx, sessionKey(pageID)).Err()
		return nil, nil
	}
	return IdentityFromClaims(claims, token), nil
}

// Subscribe registers fn for changes of one page session and invokes it once
// immediately with the persisted identity. The returned func unsubscribes and
// is safe to call more than once.
func (p *SessionProvider) Subscribe(ctx context.Context, pageID string, fn SessionChangeFunc) (func(), error) {
	identity, err := p.Current(ctx, pageID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	if p.observers[pageID] == nil {
		p.observers[pageID] = make(map[uint64]SessionChangeFunc)
	}
	p.observers[pageID][id] = fn
	p.mu.Unlock()

	fn(identity)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.observers[pageID], id)
			if len(p.observers[pageID]) == 0 {
				delete(p.observers, pageID)
			}
		})
	}, nil
}

// ObserverCount returns the number of live subscriptions.
func (p *SessionProvider) ObserverCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, obs := range p.observers {
		n += len(obs)
	}
	return n
}

// Run listens for session changes on Redis pub/sub and fans them out to the
// local observers. It blocks until ctx is done.
func (p *SessionProvider) Run(ctx context.Context) error {
	pubsub := p.rdb.Subscribe(ctx, sessionChangeChannel)
	defer pubsub.Close()

	// Wait for confirmation that subscription is created before publishing anything.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to receive confirmation from Redis Pub/Sub subscription: %w", err)
	}

	ch := pubsub.Channel()
	log.Println("Subscribed to Redis channel for session changes:", sessionChangeChannel)

	for {
		select {
		case <-ctx.Done():
			log.Println("Session Pub/Sub listener stopped.")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			p.dispatch(ctx, msg.Payload)
		}
	}
}

func (p *SessionProvider) dispatch(ctx context.Context, pageID string) {
	p.mu.RLock()
	fns := make([]SessionChangeFunc, 0, len(p.observers[pageID]))
	for _, fn := range p.observers[pageID] {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()
	if len(fns) == 0 {
		return
	}

	identity, err := p.Current(ctx, pageID)
	if err != nil {
		log.WithField("page_session", pageID).Errorf("Failed to load session after change: %v", err)
		return
	}
	for _, fn := range fns {
		fn(identity)
	}
}

func (p *SessionProvider) publish(ctx context.Context, pageID string) {
	if err := p.rdb.Publish(ctx, sessionChangeChannel, pageID).Err(); err != nil {
		log.WithField("page_session", pageID).Errorf("Failed to publish session change: %v", err)
	}
}

func objectID(v interface{}) primitive.ObjectID {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid
	}
	return primitive.NilObjectID
}

func sessionKey(pageID string) string {
	return sessionKeyPrefix + pageID
}

func cancelled(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrSignInCancelled, err)
	}
	return err
}
