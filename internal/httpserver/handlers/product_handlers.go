package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopcore/internal/auth"
	"shopcore/internal/models"
)

// Catalog CRUD is plain data plumbing; the interesting part is that every
// mutating route sits behind the products.* permission gate.

func ListProducts(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var products []models.Product
		if err := db.WithContext(r.Context()).Order("created_at desc").Find(&products).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, products)
	}
}

func GetProduct(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p models.Product
		err := db.WithContext(r.Context()).First(&p, "id = ?", chi.URLParam(r, "id")).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, lg, auth.ErrNotFound)
			return
		}
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, p)
	}
}

type productReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	Stock       *int    `json:"stock"`
}

func CreateProduct(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == nil || *req.Name == "" || req.PriceCents == nil || *req.PriceCents < 0 {
			http.Error(w, "name and non-negative price required", http.StatusBadRequest)
			return
		}
		p := models.Product{Name: *req.Name, PriceCents: *req.PriceCents}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Stock != nil {
			p.Stock = *req.Stock
		}
		if err := db.WithContext(r.Context()).Create(&p).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, p)
	}
}

func UpdateProduct(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		var p models.Product
		err := db.WithContext(r.Context()).First(&p, "id = ?", chi.URLParam(r, "id")).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, lg, auth.ErrNotFound)
			return
		}
		if err != nil {
			respondError(w, lg, err)
			return
		}
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.PriceCents != nil {
			p.PriceCents = *req.PriceCents
		}
		if req.Stock != nil {
			p.Stock = *req.Stock
		}
		p.UpdatedAt = time.Now()
		if err := db.WithContext(r.Context()).Save(&p).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, p)
	}
}

func DeleteProduct(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.WithContext(r.Context()).
			Delete(&models.Product{}, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}
