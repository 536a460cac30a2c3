package apitest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/jrsteele09/go-market-console/category"
	"github.com/jrsteele09/go-market-console/item"
)

func (s *Server) listCategories(c echo.Context) error {
	tenantID := c.Param("tenantID")
	if currentIdentity(c).TenantID != tenantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your supermarket"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]category.Category, 0)
	for _, cat := range s.categories {
		if cat.TenantID == tenantID {
			list = append(list, cat)
		}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) createCategory(c echo.Context) error {
	identity := currentIdentity(c)
	if c.Param("userID") != identity.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot create for another user"})
	}

	fields := formFields(c)
	if fields["name"] == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	cat := category.Category{
		ID:       uuid.New().String(),
		Name:     fields["name"],
		ParentID: fields["parentCategory"],
		TenantID: identity.TenantID,
	}
	if ref := formFile(c, "image"); ref != "" {
		cat.ImageRef = ref
	}

	s.mu.Lock()
	s.categories[cat.ID] = cat
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, cat)
}

func (s *Server) updateCategory(c echo.Context) error {
	id := c.Param("id")
	identity := currentIdentity(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.categories[id]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}
	if cat.TenantID != identity.TenantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your category"})
	}

	fields := formFields(c)
	if v, ok := fields["name"]; ok && v != "" {
		cat.Name = v
	}
	if v, ok := fields["parentCategory"]; ok {
		cat.ParentID = v
	}
	if ref := formFile(c, "image"); ref != "" {
		cat.ImageRef = ref
	}
	s.categories[id] = cat
	return c.JSON(http.StatusOK, cat)
}

func (s *Server) deleteCategory(c echo.Context) error {
	id := c.Param("id")
	identity := currentIdentity(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.categories[id]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}
	if cat.TenantID != identity.TenantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not own this category"})
	}
	delete(s.categories, id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listItems(c echo.Context) error {
	tenantID := c.Param("tenantID")
	if currentIdentity(c).TenantID != tenantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your supermarket"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]item.Item, 0)
	for _, it := range s.items {
		if it.TenantID == tenantID {
			list = append(list, it)
		}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getItem(c echo.Context) error {
	s.mu.Lock()
	it, ok := s.items[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
	}
	return c.JSON(http.StatusOK, it)
}

func (s *Server) listItemsByCategory(c echo.Context) error {
	categoryID := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]item.Item, 0)
	for _, it := range s.items {
		if it.CategoryID == categoryID {
			list = append(list, it)
		}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) createItem(c echo.Context) error {
	tenantID := c.Param("tenantID")
	if currentIdentity(c).TenantID != tenantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your supermarket"})
	}

	it := item.Item{ID: uuid.New().String(), TenantID: tenantID}
	if err := applyItemForm(&it, formFields(c)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if it.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if ref := formFile(c, "imageUrl"); ref != "" {
		it.ImageRef = ref
	}

	s.mu.Lock()
	s.items[it.ID] = it
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, it)
}

func (s *Server) updateItem(c echo.Context) error {
	id := c.Param("id")
	identity := currentIdentity(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
	}
	if it.TenantID != identity.TenantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your item"})
	}

	if err := applyItemForm(&it, formFields(c)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if ref := formFile(c, "imageUrl"); ref != "" {
		it.ImageRef = ref
	}
	s.items[id] = it
	return c.JSON(http.StatusOK, it)
}

func (s *Server) deleteItem(c echo.Context) error {
	id := c.Param("id")
	identity := currentIdentity(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
	}
	if it.TenantID != identity.TenantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not own this item"})
	}
	delete(s.items, id)
	return c.NoContent(http.StatusNoContent)
}

// formFields collects the string parts of a multipart (or urlencoded)
// form.
func formFields(c echo.Context) map[string]string {
	fields := map[string]string{}
	if form, err := c.MultipartForm(); err == nil {
		for name, values := range form.Value {
			if len(values) > 0 {
				fields[name] = values[0]
			}
		}
		return fields
	}
	if values, err := c.FormParams(); err == nil {
		for name := range values {
			fields[name] = values.Get(name)
		}
	}
	return fields
}

// formFile returns a stored-image reference for an uploaded file part; the
// test double keeps only the filename.
func formFile(c echo.Context, field string) string {
	file, err := c.FormFile(field)
	if err != nil {
		return ""
	}
	return "/uploads/" + file.Filename
}

// applyItemForm parses the wire representation of item fields back into
// the structured record: numbers from strings, the promotion end from
// RFC 3339 and the quantity tiers from their JSON string field.
func applyItemForm(it *item.Item, fields map[string]string) error {
	if v, ok := fields["name"]; ok {
		it.Name = v
	}
	if v, ok := fields["category"]; ok {
		it.CategoryID = v
	}
	if v, ok := fields["description"]; ok {
		it.Description = v
	}
	if v, ok := fields["unit"]; ok {
		it.Unit = v
	}
	if v, ok := fields["price"]; ok {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		it.BasePrice = price
	}
	if v, ok := fields["discount"]; ok {
		discount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		it.DiscountPercent = &discount
	}
	if v, ok := fields["weight"]; ok {
		weight, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		it.Weight = weight
	}
	if v, ok := fields["stockQuantity"]; ok {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		it.StockQuantity = stock
	}
	if v, ok := fields["promotionEnd"]; ok {
		end, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return err
		}
		it.PromotionEndsAt = &end
	}
	if v, ok := fields["quantityOffers"]; ok {
		var tiers []item.QuantityTier
		if err := json.Unmarshal([]byte(v), &tiers); err != nil {
			return err
		}
		it.QuantityTiers = tiers
	}
	return nil
}
