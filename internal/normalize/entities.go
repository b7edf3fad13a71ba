package normalize

import "github.com/feiralivre/feira/internal/model"

// Product builds the normalized product from a raw backend record.
//
// Field rules:
//   - id: numeric or string id coerced to string
//   - name: "title" preferred over "name"
//   - price: numeric or numeric string, 0 on anything else
//   - image: singular "image", else first of "images", else ""
//   - categoryId: nested categories.id, else flat categoryId, else ""
//   - rating/reviewsCount: nested rating.rate / rating.count, 0 when absent
//   - inStock: boolean as sent, true when absent
func Product(r Raw) model.Product {
	p := model.Product{
		ID:            Str(r["id"]),
		Name:          firstNonEmpty(str(r["title"]), str(r["name"])),
		Description:   str(r["description"]),
		Price:         Num(r["price"]),
		OriginalPrice: optNum(r["originalPrice"]),
		Discount:      optNum(r["discount"]),
		Images:        strList(r["images"]),
		InStock:       true,
	}

	p.Image = str(r["image"])
	if p.Image == "" && len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	if len(p.Images) == 0 && p.Image != "" {
		p.Images = []string{p.Image}
	}

	if cat := sub(r, "categories"); cat != nil {
		p.CategoryID = Str(cat["id"])
	}
	if p.CategoryID == "" {
		p.CategoryID = Str(r["categoryId"])
	}

	if rating := sub(r, "rating"); rating != nil {
		p.Rating = Num(rating["rate"])
		p.ReviewsCount = int(Num(rating["count"]))
	} else {
		// already-normalized records carry flat rating fields
		p.Rating = Num(r["rating"])
		p.ReviewsCount = int(Num(r["reviewsCount"]))
	}

	if inStock, ok := r["inStock"].(bool); ok {
		p.InStock = inStock
	}
	return p
}

// ProductDetail is Product plus the optional seller block ("users").
func ProductDetail(r Raw) model.ProductDetail {
	d := model.ProductDetail{Product: Product(r)}
	if seller := sub(r, "users"); seller != nil {
		d.Seller = &model.Seller{
			ID:   Str(seller["id"]),
			Name: firstNonEmpty(str(seller["username"]), str(seller["name"])),
		}
	}
	return d
}

// Category builds a category. The backend supplies no icon or aggregate
// product counts, so those stay at their zero values.
func Category(r Raw) model.Category {
	return model.Category{
		ID:   Str(r["id"]),
		Name: str(r["name"]),
	}
}

// User builds the account profile shape.
func User(r Raw) model.User {
	return model.User{
		ID:       Str(r["id"]),
		Username: firstNonEmpty(str(r["username"]), str(r["name"])),
		Email:    str(r["email"]),
		Avatar:   str(r["avatar"]),
		Phone:    str(r["phone"]),
	}
}

// CartLine builds one cart line from the denormalized product+quantity pair
// the cart endpoint returns. A quantity below 1 is floored to 1: lines with
// zero quantity must not exist client-side.
func CartLine(r Raw) model.CartLine {
	line := model.CartLine{Quantity: int(Num(r["quantity"]))}
	if prod := sub(r, "product"); prod != nil {
		line.Product = Product(prod)
	} else if prod := sub(r, "products"); prod != nil {
		line.Product = Product(prod)
	} else {
		// some backend versions flatten the product into the line itself
		line.Product = Product(r)
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	return line
}
