package controllers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/models"
)

// ReportController aggregates sales, inventory, customer, and financial
// figures. Reports load the relevant window and aggregate in memory so the
// same queries run against Postgres and the sqlite test database.
type ReportController struct {
	db *gorm.DB
}

// NewReportController creates a report controller
func NewReportController(db *gorm.DB) *ReportController {
	return &ReportController{db: db}
}

// reportWindow parses from/to query params, defaulting to the last 30 days
func reportWindow(c *gin.Context) (time.Time, time.Time) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t.AddDate(0, 0, 1)
		}
	}
	return from, to
}

// Sales summarizes completed orders: totals, order types, top items,
// categories, staff, and an hourly breakdown for single-day windows.
// Manager+.
func (ctrl *ReportController) Sales(c *gin.Context) {
	from, to := reportWindow(c)

	var orders []models.Order
	err := ctrl.db.Preload("Items.MenuItem.Category").
		Preload("Staff").
		Where("status = ? AND created_at >= ? AND created_at < ?", models.OrderStatusCompleted, from, to).
		Find(&orders).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to build sales report")
		return
	}

	totalRevenue := decimal.Zero
	typeBreakdown := map[models.OrderType]int{}
	itemQuantities := map[uint]int{}
	itemRevenue := map[uint]decimal.Decimal{}
	itemNames := map[uint]string{}
	categoryRevenue := map[string]decimal.Decimal{}
	staffOrders := map[uint]int{}
	staffRevenue := map[uint]decimal.Decimal{}
	staffNames := map[uint]string{}
	hourly := map[int]decimal.Decimal{}

	for _, order := range orders {
		totalRevenue = totalRevenue.Add(order.TotalAmount)
		typeBreakdown[order.OrderType]++
		staffOrders[order.StaffID]++
		staffRevenue[order.StaffID] = staffRevenue[order.StaffID].Add(order.TotalAmount)
		staffNames[order.StaffID] = order.Staff.FullName()
		hourly[order.CreatedAt.Hour()] = hourly[order.CreatedAt.Hour()].Add(order.TotalAmount)

		for _, item := range order.Items {
			itemQuantities[item.MenuItemID] += item.Quantity
			itemRevenue[item.MenuItemID] = itemRevenue[item.MenuItemID].Add(item.TotalPrice)
			itemNames[item.MenuItemID] = item.MenuItem.Name
			categoryRevenue[item.MenuItem.Category.Name] = categoryRevenue[item.MenuItem.Category.Name].Add(item.TotalPrice)
		}
	}

	averageOrderValue := decimal.Zero
	if len(orders) > 0 {
		averageOrderValue = totalRevenue.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
	}

	type itemEntry struct {
		MenuItemID uint            `json:"menuItemId"`
		Name       string          `json:"name"`
		Quantity   int             `json:"quantity"`
		Revenue    decimal.Decimal `json:"revenue"`
	}
	topItems := make([]itemEntry, 0, len(itemQuantities))
	for id, qty := range itemQuantities {
		topItems = append(topItems, itemEntry{id, itemNames[id], qty, itemRevenue[id]})
	}
	sort.Slice(topItems, func(i, j int) bool { return topItems[i].Quantity > topItems[j].Quantity })
	if len(topItems) > 10 {
		topItems = topItems[:10]
	}

	type staffEntry struct {
		StaffID uint            `json:"staffId"`
		Name    string          `json:"name"`
		Orders  int             `json:"orders"`
		Revenue decimal.Decimal `json:"revenue"`
	}
	staff := make([]staffEntry, 0, len(staffOrders))
	for id, count := range staffOrders {
		staff = append(staff, staffEntry{id, staffNames[id], count, staffRevenue[id]})
	}
	sort.Slice(staff, func(i, j int) bool {
		return staff[i].Revenue.GreaterThan(staff[j].Revenue)
	})

	data := gin.H{
		"from":              from,
		"to":                to,
		"totalOrders":       len(orders),
		"totalRevenue":      totalRevenue,
		"averageOrderValue": averageOrderValue,
		"orderTypes":        typeBreakdown,
		"topItems":          topItems,
		"categories":        categoryRevenue,
		"staffPerformance":  staff,
	}

	// Hourly breakdown only makes sense for a single-day window
	if to.Sub(from) <= 24*time.Hour {
		data["hourlyBreakdown"] = hourly
	}

	respondOK(c, data)
}

// Inventory summarizes stock levels and valuation. Manager+.
func (ctrl *ReportController) Inventory(c *gin.Context) {
	var items []models.InventoryItem
	if err := ctrl.db.Preload("Supplier").Find(&items).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to build inventory report")
		return
	}

	totalValue := decimal.Zero
	lowStock := []models.InventoryItem{}
	outOfStock := []models.InventoryItem{}
	supplierValue := map[string]decimal.Decimal{}

	for _, item := range items {
		totalValue = totalValue.Add(item.TotalValue)
		if item.CurrentStock.IsZero() {
			outOfStock = append(outOfStock, item)
		} else if item.IsLowStock {
			lowStock = append(lowStock, item)
		}
		if item.Supplier != nil {
			supplierValue[item.Supplier.Name] = supplierValue[item.Supplier.Name].Add(item.TotalValue)
		}
	}

	sorted := make([]models.InventoryItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TotalValue.GreaterThan(sorted[j].TotalValue)
	})
	if len(sorted) > 10 {
		sorted = sorted[:10]
	}

	respondOK(c, gin.H{
		"totalItems":        len(items),
		"totalValue":        totalValue,
		"lowStockItems":     lowStock,
		"outOfStockItems":   outOfStock,
		"supplierBreakdown": supplierValue,
		"mostValuableItems": sorted,
	})
}

// Customers summarizes the loyalty base over the report window. Manager+.
func (ctrl *ReportController) Customers(c *gin.Context) {
	from, to := reportWindow(c)

	var customers []models.Customer
	if err := ctrl.db.Find(&customers).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to build customer report")
		return
	}

	var newCount int64
	ctrl.db.Model(&models.Customer{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&newCount)

	type periodRevenue struct {
		CustomerID uint
		Revenue    decimal.Decimal
	}
	var orders []models.Order
	ctrl.db.Where("customer_id IS NOT NULL AND status = ? AND created_at >= ? AND created_at < ?",
		models.OrderStatusCompleted, from, to).Find(&orders)

	revenueByCustomer := map[uint]decimal.Decimal{}
	activeCustomers := map[uint]bool{}
	for _, order := range orders {
		if order.CustomerID == nil {
			continue
		}
		revenueByCustomer[*order.CustomerID] = revenueByCustomer[*order.CustomerID].Add(order.TotalAmount)
		activeCustomers[*order.CustomerID] = true
	}

	top := make([]periodRevenue, 0, len(revenueByCustomer))
	for id, revenue := range revenueByCustomer {
		top = append(top, periodRevenue{id, revenue})
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Revenue.GreaterThan(top[j].Revenue) })
	if len(top) > 10 {
		top = top[:10]
	}

	topCustomers := make([]gin.H, 0, len(top))
	for _, entry := range top {
		var customer models.Customer
		if err := ctrl.db.First(&customer, entry.CustomerID).Error; err == nil {
			topCustomers = append(topCustomers, gin.H{
				"customer": customer,
				"revenue":  entry.Revenue,
			})
		}
	}

	visitSegments := map[string]int{"new": 0, "occasional": 0, "regular": 0, "frequent": 0}
	loyaltyDistribution := map[string]int{"0-99": 0, "100-499": 0, "500-999": 0, "1000+": 0}
	for _, customer := range customers {
		switch {
		case customer.VisitCount <= 1:
			visitSegments["new"]++
		case customer.VisitCount <= 5:
			visitSegments["occasional"]++
		case customer.VisitCount <= 20:
			visitSegments["regular"]++
		default:
			visitSegments["frequent"]++
		}
		switch {
		case customer.LoyaltyPoints < 100:
			loyaltyDistribution["0-99"]++
		case customer.LoyaltyPoints < 500:
			loyaltyDistribution["100-499"]++
		case customer.LoyaltyPoints < 1000:
			loyaltyDistribution["500-999"]++
		default:
			loyaltyDistribution["1000+"]++
		}
	}

	respondOK(c, gin.H{
		"from":                from,
		"to":                  to,
		"totalCustomers":      len(customers),
		"newCustomers":        newCount,
		"activeCustomers":     len(activeCustomers),
		"topCustomers":        topCustomers,
		"visitSegments":       visitSegments,
		"loyaltyDistribution": loyaltyDistribution,
	})
}

// Financial summarizes revenue, tax, tips, cost of goods, and refunds.
// Admin only.
func (ctrl *ReportController) Financial(c *gin.Context) {
	from, to := reportWindow(c)

	var orders []models.Order
	err := ctrl.db.Preload("Items.MenuItem").
		Where("status = ? AND created_at >= ? AND created_at < ?", models.OrderStatusCompleted, from, to).
		Find(&orders).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to build financial report")
		return
	}

	grossRevenue := decimal.Zero
	totalTax := decimal.Zero
	totalTips := decimal.Zero
	costOfGoods := decimal.Zero
	daily := map[string]decimal.Decimal{}

	for _, order := range orders {
		grossRevenue = grossRevenue.Add(order.TotalAmount)
		totalTax = totalTax.Add(order.TaxAmount)
		totalTips = totalTips.Add(order.TipAmount)
		day := order.CreatedAt.Format("2006-01-02")
		daily[day] = daily[day].Add(order.TotalAmount)

		for _, item := range order.Items {
			if item.MenuItem.Cost != nil {
				costOfGoods = costOfGoods.Add(item.MenuItem.Cost.Mul(decimal.NewFromInt(int64(item.Quantity))))
			}
		}
	}

	var payments []models.Payment
	ctrl.db.Where("created_at >= ? AND created_at < ?", from, to).Find(&payments)

	totalRefunds := decimal.Zero
	methodBreakdown := map[models.PaymentMethod]decimal.Decimal{}
	for _, payment := range payments {
		totalRefunds = totalRefunds.Add(payment.RefundAmount)
		if payment.Status == models.PaymentStatusCompleted || payment.Status == models.PaymentStatusRefunded {
			methodBreakdown[payment.PaymentMethod] = methodBreakdown[payment.PaymentMethod].Add(payment.Amount)
		}
	}

	netRevenue := grossRevenue.Sub(totalTax).Sub(totalRefunds)
	grossProfit := netRevenue.Sub(costOfGoods)
	grossMargin := decimal.Zero
	if netRevenue.IsPositive() {
		grossMargin = grossProfit.Div(netRevenue).Mul(decimal.NewFromInt(100)).Round(2)
	}

	respondOK(c, gin.H{
		"from":            from,
		"to":              to,
		"grossRevenue":    grossRevenue,
		"netRevenue":      netRevenue,
		"totalTax":        totalTax,
		"totalTips":       totalTips,
		"costOfGoods":     costOfGoods,
		"grossProfit":     grossProfit,
		"grossMarginPct":  grossMargin,
		"totalRefunds":    totalRefunds,
		"paymentMethods":  methodBreakdown,
		"dailyBreakdown":  daily,
	})
}
