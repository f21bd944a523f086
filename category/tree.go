package category

import (
	"gofalre.io/storefront/models"
)

// BuildTree links categories to their parents. Categories whose parent is
// missing from the input are dropped; input order is kept among siblings.
func BuildTree(categories []*models.Category) []*models.CategoryTree {
	categoryMap := make(map[uint64]*models.CategoryTree, len(categories))
	var roots []*models.CategoryTree

	for _, cat := range categories {
		node := &models.CategoryTree{Category: cat}
		categoryMap[cat.ID] = node
		if cat.ParentID == nil {
			roots = append(roots, node)
		}
	}

	for _, cat := range categories {
		if cat.ParentID != nil {
			parent, exists := categoryMap[*cat.ParentID]
			if exists {
				parent.Children = append(parent.Children, categoryMap[cat.ID])
			}
		}
	}

	return roots
}
