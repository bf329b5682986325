package repository

import (
	"strings"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"gorm.io/gorm"
)

type ClientRepository interface {
	Create(client *model.Client) error
	FindByID(id uint) (*model.Client, error)
	FindByTaxID(taxID string) (*model.Client, error)
	List(search string, page, pageSize int) ([]model.Client, int64, error)
	FindNamesByIDs(ids []uint) (map[uint]string, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(client *model.Client) error {
	logger.Debug("Creating client in database", map[string]interface{}{
		"tax_id": client.TaxID,
	})

	if err := r.db.Create(client).Error; err != nil {
		logger.Error("Failed to create client in database", err, map[string]interface{}{
			"tax_id": client.TaxID,
		})
		return err
	}

	logger.Debug("Client created in database", map[string]interface{}{
		"client_id": client.ID,
	})
	return nil
}

func (r *clientRepository) FindByID(id uint) (*model.Client, error) {
	var client model.Client
	if err := r.db.First(&client, id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) FindByTaxID(taxID string) (*model.Client, error) {
	var client model.Client
	if err := r.db.Where("tax_id = ?", taxID).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(search string, page, pageSize int) ([]model.Client, int64, error) {
	query := r.db.Model(&model.Client{})
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR tax_id LIKE ?", like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count clients", err)
		return nil, 0, err
	}

	var clients []model.Client
	if err := query.Order("name ASC").Order("id ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&clients).Error; err != nil {
		logger.Error("Failed to list clients", err)
		return nil, 0, err
	}
	return clients, total, nil
}

// FindNamesByIDs resolves display names in one query. Unknown ids are absent from the map.
func (r *clientRepository) FindNamesByIDs(ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var rows []struct {
		ID   uint
		Name string
	}
	if err := r.db.Model(&model.Client{}).Select("id, name").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		logger.Error("Failed to resolve client names", err, map[string]interface{}{
			"count": len(ids),
		})
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}
