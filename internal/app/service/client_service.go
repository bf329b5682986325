package service

import (
	"errors"
	"strings"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrInvalidClientInput = errors.New("client name and tax id are required")

type ClientPage struct {
	Items    []model.Client `json:"items"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int64          `json:"total"`
}

type ClientService interface {
	CreateClient(name, taxID, email string) (*model.Client, error)
	GetClient(id uint) (*model.Client, error)
	ListClients(search string, page, pageSize int) (*ClientPage, error)
}

type clientService struct {
	clientRepo repository.ClientRepository
}

func NewClientService(clientRepo repository.ClientRepository) ClientService {
	return &clientService{clientRepo: clientRepo}
}

func (s *clientService) CreateClient(name, taxID, email string) (*model.Client, error) {
	name = strings.TrimSpace(name)
	taxID = strings.TrimSpace(taxID)
	if name == "" || taxID == "" {
		return nil, ErrInvalidClientInput
	}

	if _, err := s.clientRepo.FindByTaxID(taxID); err == nil {
		return nil, ErrClientAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	client := &model.Client{Name: name, TaxID: taxID, Email: strings.TrimSpace(email)}
	if err := s.clientRepo.Create(client); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrClientAlreadyExists
		}
		return nil, err
	}

	logger.Info("Client created", map[string]interface{}{
		"client_id": client.ID,
	})
	return client, nil
}

func (s *clientService) GetClient(id uint) (*model.Client, error) {
	client, err := s.clientRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}

func (s *clientService) ListClients(search string, page, pageSize int) (*ClientPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.clientRepo.List(strings.TrimSpace(search), page, pageSize)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Client{}
	}
	return &ClientPage{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}
