package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carmart-service/internal/bidcache"
	"carmart-service/internal/models"
	"carmart-service/internal/observability"
	"carmart-service/internal/repositories"
	"carmart-service/internal/telemetry"
)

// HighestBidCache is the hot-path view of a listing's top offer. The ledger
// in Postgres stays authoritative; the cache is advisory.
type HighestBidCache interface {
	RecordBid(ctx context.Context, bid models.Bid) error
	Highest(ctx context.Context, listingID int) (models.HighestBid, error)
}

// BidHandler manages the bid ledger endpoints.
type BidHandler struct {
	bidRepo     repositories.BidRepository
	catalogRepo repositories.CatalogRepository
	cache       HighestBidCache
	audit       *telemetry.AuditEmitter
}

// NewBidHandler builds a BidHandler. cache may be nil when Redis is not
// configured.
func NewBidHandler(bidRepo repositories.BidRepository, catalogRepo repositories.CatalogRepository, cache HighestBidCache, audit *telemetry.AuditEmitter) *BidHandler {
	return &BidHandler{
		bidRepo:     bidRepo,
		catalogRepo: catalogRepo,
		cache:       cache,
		audit:       audit,
	}
}

// PlaceBid appends an offer to the listing's ledger. Any positive amount is
// accepted regardless of the listing price or prior bids; the ledger records
// offers without refereeing them.
func (h *BidHandler) PlaceBid(c *gin.Context) {
	listingID, err := strconv.Atoi(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	var req struct {
		Amount float64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.catalogRepo.GetListing(c.Request.Context(), listingID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrListingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "listing not found"})
		return
	}

	bid, err := h.bidRepo.AppendBid(c.Request.Context(), listingID, userID, req.Amount)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bid amount must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store bid"})
		return
	}

	observability.IncBidPlaced()
	h.audit.EmitForUser(c.Request.Context(), "INFO", "bid placed", requestIDFromContext(c), userID)
	_ = observability.PublishEvent(c.Request.Context(), "domain_events.bids", observability.EventEnvelope{
		EventType: "domain_events",
		EventName: "bid_placed",
		Payload:   gin.H{"listing_id": listingID, "bid_id": bid.ID, "amount": bid.Amount},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))

	// Cache refresh is best effort: the durable append already succeeded.
	if h.cache != nil {
		if err := h.cache.RecordBid(c.Request.Context(), bid); err != nil {
			log.Printf("bid cache refresh failed listing=%d: %v", listingID, err)
		}
	}

	c.JSON(http.StatusCreated, bid)
}

// ListBids returns the listing's ledger in insertion order.
func (h *BidHandler) ListBids(c *gin.Context) {
	listingID, err := strconv.Atoi(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	if _, err := h.catalogRepo.GetListing(c.Request.Context(), listingID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrListingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "listing not found"})
		return
	}

	bids, err := h.bidRepo.ListBids(c.Request.Context(), listingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bids"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// HighestBid serves the top offer from the cache, falling back to the
// ledger when the cache is cold or unavailable.
func (h *BidHandler) HighestBid(c *gin.Context) {
	listingID, err := strconv.Atoi(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	if h.cache != nil {
		highest, err := h.cache.Highest(c.Request.Context(), listingID)
		if err == nil {
			c.JSON(http.StatusOK, highest)
			return
		}
		if !errors.Is(err, bidcache.ErrMiss) {
			log.Printf("bid cache read failed listing=%d: %v", listingID, err)
		}
	}

	bid, err := h.bidRepo.HighestBid(c.Request.Context(), listingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoBids) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no bids on listing"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load highest bid"})
		return
	}

	c.JSON(http.StatusOK, models.HighestBid{ListingID: bid.ListingID, BidderID: bid.BidderID, Amount: bid.Amount})
}
