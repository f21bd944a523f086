package cart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gofalre.io/storefront/models"
)

const (
	PlaceholderName  = "Unnamed product"
	PlaceholderImage = "/images/placeholder.png"

	maxEnvelopeDepth = 3
)

// field maps one CartLine attribute to the backend fields that may carry
// it, tried in order. Dotted sources walk nested objects; numeric segments
// index arrays.
type field struct {
	attr     string
	sources  []string
	fallback string
}

var lineFields = []field{
	{attr: "id", sources: []string{"id", "cartItemId", "cart_item_id", "itemId", "_id"}},
	{attr: "productId", sources: []string{"productId", "product_id", "product.id", "product._id"}},
	{attr: "name", sources: []string{"name", "productName", "product_name", "product.name", "title", "product.title"}, fallback: PlaceholderName},
	{attr: "unitPrice", sources: []string{"unitPrice", "unit_price", "price", "salePrice", "product.price", "product.salePrice"}, fallback: "0"},
	{attr: "quantity", sources: []string{"quantity", "qty", "count"}, fallback: "1"},
	{attr: "stockLimit", sources: []string{"stockLimit", "stock_limit", "stock", "stockQuantity", "product.stock", "product.stockQuantity", "product.stock_quantity"}, fallback: "0"},
	{attr: "size", sources: []string{"size", "selectedSize", "selected_size", "product.size"}},
	{attr: "color", sources: []string{"color", "selectedColor", "selected_color", "product.color"}},
	{attr: "imageUrl", sources: []string{"imageUrl", "image_url", "image", "thumbnail", "product.imageUrl", "product.image_url", "product.image", "product.images.0"}, fallback: PlaceholderImage},
}

// envelopeKeys are the object keys under which the backend may nest the line array.
var envelopeKeys = []string{"items", "cartItems", "cart_items", "lines", "data", "cart"}

// normalizeCart turns whatever GET /cart returned into cart lines. Lines
// without an id or with a quantity below 1 are dropped, as is any repeated id.
func normalizeCart(payload any, logger *zap.Logger) ([]models.CartLine, error) {
	raw, err := unwrapItems(payload, 0)
	if err != nil {
		return nil, err
	}

	lines := make([]models.CartLine, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			logger.Warn("Skipping cart entry that is not an object", zap.Int("index", i))
			continue
		}

		line := normalizeLine(obj, logger)
		if line.ID == "" {
			logger.Warn("Skipping cart entry without id", zap.Int("index", i))
			continue
		}
		if line.Quantity < 1 {
			logger.Warn("Skipping cart entry with quantity below 1",
				zap.String("line_id", line.ID),
				zap.Int("quantity", line.Quantity))
			continue
		}
		if _, dup := seen[line.ID]; dup {
			logger.Warn("Skipping duplicate cart entry", zap.String("line_id", line.ID))
			continue
		}
		seen[line.ID] = struct{}{}
		lines = append(lines, line)
	}
	return lines, nil
}

func unwrapItems(payload any, depth int) ([]any, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case map[string]any:
		if depth >= maxEnvelopeDepth {
			break
		}
		for _, key := range envelopeKeys {
			inner, ok := v[key]
			if !ok || inner == nil {
				continue
			}
			return unwrapItems(inner, depth+1)
		}
		// an object with none of the envelope keys is an empty cart
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected cart payload %T", payload)
}

func normalizeLine(obj map[string]any, logger *zap.Logger) models.CartLine {
	values := make(map[string]string, len(lineFields))
	for _, f := range lineFields {
		values[f.attr] = resolve(obj, f)
	}

	line := models.CartLine{
		ID:        values["id"],
		ProductID: values["productId"],
		Name:      values["name"],
		Size:      values["size"],
		Color:     values["color"],
		ImageURL:  values["imageUrl"],
	}

	price, err := decimal.NewFromString(values["unitPrice"])
	if err != nil || price.IsNegative() {
		logger.Warn("Invalid unit price, using 0",
			zap.String("line_id", line.ID),
			zap.String("value", values["unitPrice"]))
		price = decimal.Zero
	}
	line.UnitPrice = price

	line.Quantity = toInt(values["quantity"], 1)
	line.StockLimit = toInt(values["stockLimit"], 0)
	if line.StockLimit < 0 {
		line.StockLimit = 0
	}
	return line
}

// resolve returns the first non-empty scalar among f.sources, or f.fallback.
func resolve(obj map[string]any, f field) string {
	for _, src := range f.sources {
		v, ok := lookup(obj, src)
		if !ok {
			continue
		}
		if s, ok := scalar(v); ok && s != "" {
			return s
		}
	}
	return f.fallback
}

func lookup(obj map[string]any, path string) (any, bool) {
	var cur any = obj
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

func toInt(s string, fallback int) int {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fallback
	}
	return int(d.IntPart())
}
