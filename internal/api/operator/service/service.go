package operatorService

import (
	"FaceLiveness/internal/api/operator"
	operatorRepository "FaceLiveness/internal/api/operator/repository"
	"FaceLiveness/pkg/bcrypt"
	"FaceLiveness/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

type IOperatorService interface {
	Login(ctx context.Context, req operator.LoginRequest) (operator.LoginResponse, error)
	// EnsureOperator creates the account or resets its password.
	EnsureOperator(ctx context.Context, username, password string) error
}

type operatorService struct {
	log         *logrus.Logger
	repo        operatorRepository.Repository
	bcryptUtils bcrypt.IBcrypt
	utils       utils.IUtils
	tokenTTL    time.Duration
}

func New(
	log *logrus.Logger,
	repo operatorRepository.Repository,
	bcryptUtils bcrypt.IBcrypt,
	utils utils.IUtils,
	tokenTTL time.Duration,
) IOperatorService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &operatorService{
		log:         log,
		repo:        repo,
		bcryptUtils: bcryptUtils,
		utils:       utils,
		tokenTTL:    tokenTTL,
	}
}
