package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/laithharzallah/Laithstool-sub001/internal/registry"
	"github.com/laithharzallah/Laithstool-sub001/internal/screen"
	"github.com/laithharzallah/Laithstool-sub001/internal/validate"
)

type companyRequest struct {
	Company    string `json:"company"`
	Country    string `json:"country"`
	Domain     string `json:"domain"`
	Level      string `json:"level"`
	RegistryID string `json:"registry_id"`
}

type individualRequest struct {
	Name        string `json:"name"`
	Country     string `json:"country"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Level       string `json:"level"`
}

type dartLookupRequest struct {
	Company    string `json:"company"`
	RegistryID string `json:"registry_id"`
}

// parseCompanyRequest validates the raw body into a screening request.
func parseCompanyRequest(req companyRequest) (screen.CompanyRequest, error) {
	var out screen.CompanyRequest
	var err error
	if out.Company, err = validate.CompanyName(req.Company); err != nil {
		return out, err
	}
	if out.Country, err = validate.Country(req.Country); err != nil {
		return out, err
	}
	if out.Domain, err = validate.Domain(req.Domain); err != nil {
		return out, err
	}
	if out.Level, err = validate.ScreeningLevel(req.Level); err != nil {
		return out, err
	}
	if out.RegistryID, err = validate.RegistryID(req.RegistryID); err != nil {
		return out, err
	}
	return out, nil
}

// ScreenCompany runs a synchronous company screening and returns the
// full report.
func (h *Handler) ScreenCompany(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	parsed, err := parseCompanyRequest(req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	h.logger.Info("company screening request",
		"company", parsed.Company, "country", parsed.Country)

	rep, err := h.screener.ScreenCompany(c.Request.Context(), parsed)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// ScreenIndividual runs a synchronous individual screening.
func (h *Handler) ScreenIndividual(c *gin.Context) {
	var req individualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	var parsed screen.IndividualRequest
	var err error
	if parsed.Name, err = validate.PersonName(req.Name); err != nil {
		h.abortWithError(c, err)
		return
	}
	if parsed.Country, err = validate.Country(req.Country); err != nil {
		h.abortWithError(c, err)
		return
	}
	if parsed.DateOfBirth, err = validate.DateOfBirth(req.DateOfBirth); err != nil {
		h.abortWithError(c, err)
		return
	}
	if parsed.Level, err = validate.ScreeningLevel(req.Level); err != nil {
		h.abortWithError(c, err)
		return
	}
	parsed.Gender = req.Gender

	h.logger.Info("individual screening request",
		"name", parsed.Name, "country", parsed.Country)

	rep, err := h.screener.ScreenIndividual(c.Request.Context(), parsed)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// DARTLookup fetches a registry profile. Without an explicit registry
// ID the company name is resolved through registry search first.
func (h *Handler) DARTLookup(c *gin.Context) {
	var req dartLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	registryID, err := validate.RegistryID(req.RegistryID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if registryID == "" {
		company, err := validate.CompanyName(req.Company)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		candidates, err := h.screener.RegistrySearch(c.Request.Context(), company)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		if len(candidates) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "company not found in registry"})
			return
		}
		registryID = candidates[0].CorpCode
	}

	profile, err := h.screener.RegistryLookup(c.Request.Context(), registryID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// DARTSearch lists registry candidates matching the q parameter.
func (h *Handler) DARTSearch(c *gin.Context) {
	q, err := validate.CompanyName(c.Query("q"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	candidates, err := h.screener.RegistrySearch(c.Request.Context(), q)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if candidates == nil {
		candidates = []registry.Candidate{}
	}
	c.JSON(http.StatusOK, gin.H{
		"query":      q,
		"total":      len(candidates),
		"candidates": candidates,
	})
}
