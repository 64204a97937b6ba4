package services

import (
	"log"
	"net/http"

	"github.com/unimarket/unimarket-chat/config"
	"github.com/unimarket/unimarket-chat/db"
	apiError "github.com/unimarket/unimarket-chat/errors"
	"github.com/unimarket/unimarket-chat/models"
	"github.com/unimarket/unimarket-chat/services/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService is the credential boundary the messaging core depends on: login
// issues the bearer token the history fetch and the websocket handshake carry,
// logout revokes it.
type AuthService interface {
	SignupUser(user *models.User) (*models.User, *apiError.Error)
	LoginUser(loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error)
	LogoutUser(token string) *apiError.Error
}

type authService struct {
	Config   *config.Config
	authRepo db.AuthRepository
}

func NewAuthService(authRepo db.AuthRepository, conf *config.Config) AuthService {
	return &authService{
		Config:   conf,
		authRepo: authRepo,
	}
}

func (a *authService) SignupUser(user *models.User) (*models.User, *apiError.Error) {
	if user.Username == "" || user.Email == "" || user.Password == "" {
		return nil, apiError.New("username, email and password are required", http.StatusBadRequest)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("SignupUser error hashing password: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	user.HashedPassword = string(hashedPassword)
	user.Password = ""

	createdUser, err := a.authRepo.CreateUser(user)
	if err != nil {
		log.Printf("SignupUser error creating user: %v", err)
		return nil, apiError.GetUniqueContraintError(err)
	}

	createdUser.HashedPassword = ""
	return createdUser, nil
}

func (a *authService) LoginUser(loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error) {
	user, err := a.authRepo.FindUserByUsername(loginRequest.Username)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Generic 401 so probes can't enumerate usernames.
			return nil, apiError.ErrUnauthorized
		}
		log.Printf("LoginUser error finding user: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(loginRequest.Password)); err != nil {
		return nil, apiError.ErrUnauthorized
	}

	accessToken, err := jwt.GenerateToken(user, a.Config.JWTSecret)
	if err != nil {
		log.Printf("LoginUser error generating token: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	user.HashedPassword = ""
	return &models.LoginResponse{
		AccessToken: accessToken,
		User:        user,
	}, nil
}

func (a *authService) LogoutUser(token string) *apiError.Error {
	if err := a.authRepo.AddToBlacklist(token); err != nil {
		log.Printf("LogoutUser error: %v", err)
		return apiError.New("logout failed", http.StatusInternalServerError)
	}
	return nil
}
