package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/goombaio/namegenerator"

	"github.com/weiawesome/watch-party/internal/cache"
	"github.com/weiawesome/watch-party/internal/domain"
	"github.com/weiawesome/watch-party/internal/repository"
	"github.com/weiawesome/watch-party/pkg/log"
)

const maxUsernameAttempts = 5

// UsernameGenerator produces candidate usernames.
type UsernameGenerator interface {
	Generate() string
}

// randomUsernames yields "adjective-noun-NNNN". The underlying generators
// are not safe for concurrent use.
type randomUsernames struct {
	mu    sync.Mutex
	names namegenerator.Generator
	rnd   *rand.Rand
}

func NewUsernameGenerator(seed int64) UsernameGenerator {
	return &randomUsernames{
		names: namegenerator.NewNameGenerator(seed),
		rnd:   rand.New(rand.NewSource(seed)),
	}
}

func (g *randomUsernames) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s-%04d", g.names.Generate(), g.rnd.Intn(10000))
}

// userServiceImpl implements UserService interface.
type userServiceImpl struct {
	users     repository.UserRepository
	cache     cache.Cache
	cacheTTL  time.Duration
	usernames UsernameGenerator
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, c cache.Cache, cacheTTL time.Duration, usernames UsernameGenerator) UserService {
	return &userServiceImpl{
		users:     users,
		cache:     c,
		cacheTTL:  cacheTTL,
		usernames: usernames,
	}
}

// CreateUser stores a user under a fresh id and a generated username,
// retrying when the username is taken.
func (s *userServiceImpl) CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	l := log.Ctx(ctx)

	user := &domain.User{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Avatar: req.Avatar,
	}

	var err error
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		user.Username = s.usernames.Generate()
		err = s.users.CreateUser(ctx, user)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		l.Debug().Str("username", user.Username).Msg("username taken, retrying")
	}
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, s.cache.UserKey(user.ID), user.Profile(), s.cacheTTL); err != nil {
		l.Warn().Err(err).Str(log.FieldMemberID, user.ID).Msg("profile cache write failed")
	}
	return user, nil
}

func (s *userServiceImpl) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
