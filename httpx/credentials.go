package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/oauth"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/event-registration/config"
	"github.com/mbolis/event-registration/log"
	"github.com/mbolis/event-registration/model"
)

// RoleAdmin grants access to the administration API.
const RoleAdmin = "admin"

// RefreshTTL bounds how long an issued refresh token can be redeemed.
const RefreshTTL = 8760 * time.Hour

var errCouldNotRefresh = errors.New("could not refresh")

type CredentialStore interface {
	FindUser(ctx context.Context, username string) (model.User, error)
	UpsertUser(ctx context.Context, u model.User) error
	StoreToken(ctx context.Context, t model.Token) error
	TakeToken(ctx context.Context, username, tokenID, refreshTokenID string) (model.Token, error)
}

type credentialsVerifier struct {
	store CredentialStore
	now   func() time.Time
}

func CredentialsVerifier(store CredentialStore) oauth.CredentialsVerifier {
	return &credentialsVerifier{store: store, now: time.Now}
}

// NewBearerServer issues access tokens signed with the configured secret.
func NewBearerServer(store CredentialStore, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(store), nil)
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	user, err := cs.store.FindUser(requestContext(r), username)
	if err != nil {
		return err
	}
	return bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password))
}

func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.store.StoreToken(context.Background(), model.Token{
		Username:       credential,
		TokenID:        tokenID,
		RefreshTokenID: refreshTokenID,
		Expiration:     cs.now().Add(RefreshTTL).UTC(),
	})
}

// ValidateTokenID redeems a refresh token: each one is accepted once.
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	token, err := cs.store.TakeToken(context.Background(), credential, tokenID, refreshTokenID)
	if err != nil {
		log.Debugf("token.take: %s", err)
		return errCouldNotRefresh
	}
	if token.Expiration.Before(cs.now()) {
		return errCouldNotRefresh
	}
	return nil
}

func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	user, err := cs.store.FindUser(requestContext(r), credential)
	if err != nil {
		return nil, err
	}
	return map[string]string{"roles": strings.Join(user.Roles, ",")}, nil
}

func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}

// EnsureAdmin creates the configured admin account, or resets its password.
// Nothing happens when no admin user is configured.
func EnsureAdmin(ctx context.Context, store CredentialStore, cfg config.Config) error {
	if cfg.AdminUser == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	err = store.UpsertUser(ctx, model.User{
		Username:     cfg.AdminUser,
		PasswordHash: hash,
		Roles:        []string{RoleAdmin},
	})
	if err != nil {
		return errors.Wrap(err, "store admin user")
	}
	log.Info("Admin account ready: " + cfg.AdminUser)
	return nil
}
