package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wastebill/server/internal/models"
	"wastebill/server/internal/services"
)

// RegistryController exposes the company and transporter registries.
type RegistryController struct {
	companies    *services.CompanyService
	transporters *services.TransporterService
}

func NewRegistryController(companies *services.CompanyService, transporters *services.TransporterService) *RegistryController {
	return &RegistryController{
		companies:    companies,
		transporters: transporters,
	}
}

// ListCompanies lists registered companies.
// GET /api/v1/companies
func (rc *RegistryController) ListCompanies(c *gin.Context) {
	companies, err := rc.companies.ListCompanies(c.Request.Context(), c.Query("includeArchived") == "true")
	if err != nil {
		respondError(c, err, "Failed to list companies")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"companies": companies,
		"count":     len(companies),
	})
}

// GetCompany returns one company.
// GET /api/v1/companies/:id
func (rc *RegistryController) GetCompany(c *gin.Context) {
	company, err := rc.companies.GetCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load company")
		return
	}
	c.JSON(http.StatusOK, company)
}

// CreateCompany registers a company.
// POST /api/v1/companies
func (rc *RegistryController) CreateCompany(c *gin.Context) {
	var req models.Company
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if err := rc.companies.CreateCompany(c.Request.Context(), &req); err != nil {
		respondError(c, err, "Failed to create company")
		return
	}
	c.JSON(http.StatusCreated, req)
}

// UpdateCompany updates a company's registry entry.
// PUT /api/v1/companies/:id
func (rc *RegistryController) UpdateCompany(c *gin.Context) {
	var req models.Company
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	company, err := rc.companies.UpdateCompany(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to update company")
		return
	}
	c.JSON(http.StatusOK, company)
}

// ArchiveCompany archives a company so it stops appearing in pickers.
// DELETE /api/v1/companies/:id
func (rc *RegistryController) ArchiveCompany(c *gin.Context) {
	if err := rc.companies.ArchiveCompany(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to archive company")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Company archived"})
}

// ListTransporters lists registered transporters.
// GET /api/v1/transporters
func (rc *RegistryController) ListTransporters(c *gin.Context) {
	transporters, err := rc.transporters.ListTransporters(c.Request.Context(), c.Query("includeArchived") == "true")
	if err != nil {
		respondError(c, err, "Failed to list transporters")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transporters": transporters,
		"count":        len(transporters),
	})
}

// GetTransporter returns one transporter.
// GET /api/v1/transporters/:id
func (rc *RegistryController) GetTransporter(c *gin.Context) {
	transporter, err := rc.transporters.GetTransporter(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load transporter")
		return
	}
	c.JSON(http.StatusOK, transporter)
}

// CreateTransporter registers a transporter.
// POST /api/v1/transporters
func (rc *RegistryController) CreateTransporter(c *gin.Context) {
	var req models.Transporter
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if err := rc.transporters.CreateTransporter(c.Request.Context(), &req); err != nil {
		respondError(c, err, "Failed to create transporter")
		return
	}
	c.JSON(http.StatusCreated, req)
}

// UpdateTransporter updates a transporter's registry entry.
// PUT /api/v1/transporters/:id
func (rc *RegistryController) UpdateTransporter(c *gin.Context) {
	var req models.Transporter
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	transporter, err := rc.transporters.UpdateTransporter(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to update transporter")
		return
	}
	c.JSON(http.StatusOK, transporter)
}

// ArchiveTransporter archives a transporter.
// DELETE /api/v1/transporters/:id
func (rc *RegistryController) ArchiveTransporter(c *gin.Context) {
	if err := rc.transporters.ArchiveTransporter(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to archive transporter")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transporter archived"})
}
