package pipeline

var (
	colorObjectName  = []string{"colorName", "name", "color"}
	colorObjectStock = []string{"qty", "quantity", "stock", "inventory"}
	colorObjectPrice = []string{"price", "piecePrice", "customerPrice"}
	colorObjectSKU   = []string{"sku", "colorSku"}
	sizeObjectName   = []string{"sizeName", "size", "name"}
	imageObjectURL   = []string{"url", "src", "imageUrl"}
)

// builtinMappings cover the suppliers the engine ships with. Field names
// follow each supplier's API payloads.
var builtinMappings = []Mapping{
	{
		SupplierID:   "ascolour",
		Name:         "AS Colour",
		StyleID:      []string{"styleCode", "code"},
		SupplierSKU:  []string{"styleCode", "code", "webId"},
		ProductName:  []string{"styleName", "name"},
		Brand:        []string{"brand"},
		DefaultBrand: "AS Colour",
		Category:     []string{"productType", "category"},
		Description:  []string{"description"},
		Material:     []string{"composition", "fabric"},
		Weight:       []string{"fabricWeight", "weight"},
		Pricing:      []string{"pricing.tiers", "pricing.wholesale", "pricing", "price"},
		Stock:        []string{"stock", "inventory.total", "totalStock"},
		LeadTime:     []string{"leadTimeDays", "leadTime"},
		Colors:       "colors",
		ColorName:    colorObjectName,
		ColorStock:   colorObjectStock,
		ColorPrice:   colorObjectPrice,
		ColorSKU:     colorObjectSKU,
		Sizes:        "sizes",
		SizeName:     sizeObjectName,
		Images:       "images",
		ImageURL:     imageObjectURL,
		Tags:         "tags",
	},
	{
		SupplierID:  "ssactivewear",
		Name:        "S&S Activewear",
		StyleID:     []string{"styleID", "styleId", "styleName"},
		SupplierSKU: []string{"styleID", "styleId", "partNumber"},
		ProductName: []string{"title", "styleName"},
		Brand:       []string{"brandName", "brand"},
		Category:    []string{"categoryName", "baseCategory", "category"},
		Description: []string{"description"},
		Material:    []string{"fabricContent", "composition"},
		Weight:      []string{"pieceWeight", "weight"},
		Pricing:     []string{"pricing", "prices", "piecePrice"},
		Stock:       []string{"qty", "totalQty", "stock"},
		LeadTime:    []string{"leadTimeDays"},
		Colors:      "colors",
		ColorName:   colorObjectName,
		ColorStock:  colorObjectStock,
		ColorPrice:  colorObjectPrice,
		ColorSKU:    colorObjectSKU,
		Sizes:       "sizes",
		SizeName:    sizeObjectName,
		Images:      "images",
		ImageURL:    imageObjectURL,
		Tags:        "tags",
	},
	{
		SupplierID:  "sanmar",
		Name:        "SanMar",
		StyleID:     []string{"style", "sku"},
		SupplierSKU: []string{"sku", "style"},
		ProductName: []string{"name", "productTitle"},
		Brand:       []string{"brand", "brandName"},
		Category:    []string{"category"},
		Description: []string{"description"},
		Material:    []string{"material", "fabric"},
		Weight:      []string{"weight"},
		Pricing:     []string{"pricing.tiers", "pricing.basePrice", "pricing", "price"},
		Stock:       []string{"inventory", "stock", "qty"},
		LeadTime:    []string{"leadTimeDays", "leadTime"},
		Colors:      "colors",
		ColorName:   colorObjectName,
		ColorStock:  colorObjectStock,
		ColorPrice:  colorObjectPrice,
		ColorSKU:    colorObjectSKU,
		Sizes:       "sizes",
		SizeName:    sizeObjectName,
		Images:      "images",
		ImageURL:    imageObjectURL,
		Tags:        "tags",
	},
}
