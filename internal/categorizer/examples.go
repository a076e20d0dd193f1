package categorizer

import "fjacquet/fin-insights/internal/models"

// builtinExamples seed the classifier when no examples file is configured.
var builtinExamples = []models.TrainingExample{
	{Description: "Amazon purchase", Category: "Shopping"},
	{Description: "Amazon Marketplace order", Category: "Shopping"},
	{Description: "Ebay purchase", Category: "Shopping"},
	{Description: "Walmart store", Category: "Shopping"},
	{Description: "Target - home goods", Category: "Shopping"},
	{Description: "Best Buy electronics", Category: "Shopping"},
	{Description: "Home Depot store", Category: "Home Improvement"},
	{Description: "Lowe's home improvement", Category: "Home Improvement"},
	{Description: "Whole Foods Market", Category: "Groceries"},
	{Description: "Trader Joe's groceries", Category: "Groceries"},
	{Description: "Safeway grocery store", Category: "Groceries"},
	{Description: "Kroger grocery", Category: "Groceries"},
	{Description: "Costco membership renewal", Category: "Groceries"},
	{Description: "Aldi supermarket", Category: "Groceries"},
	{Description: "Netflix subscription", Category: "Subscriptions"},
	{Description: "Spotify monthly", Category: "Subscriptions"},
	{Description: "Hulu subscription", Category: "Subscriptions"},
	{Description: "Disney+ subscription", Category: "Subscriptions"},
	{Description: "Apple Music membership", Category: "Subscriptions"},
	{Description: "Amazon Prime Video", Category: "Subscriptions"},
	{Description: "Microsoft Office subscription", Category: "Technology"},
	{Description: "Uber ride", Category: "Transportation"},
	{Description: "Uber trip", Category: "Transportation"},
	{Description: "Lyft ride", Category: "Transportation"},
	{Description: "Lyft trip", Category: "Transportation"},
	{Description: "Amtrak train ticket", Category: "Transportation"},
	{Description: "Caltrain ticket", Category: "Transportation"},
	{Description: "PG&E utility bill", Category: "Utilities"},
	{Description: "Pacific Gas and Electric payment", Category: "Utilities"},
	{Description: "AT&T internet", Category: "Utilities"},
	{Description: "Comcast Xfinity", Category: "Utilities"},
	{Description: "Verizon wireless", Category: "Utilities"},
	{Description: "Water bill", Category: "Utilities"},
	{Description: "Rent payment", Category: "Rent"},
	{Description: "Apartment rent", Category: "Rent"},
	{Description: "Mortgage payment", Category: "Rent"},
	{Description: "HOA dues", Category: "Rent"},
	{Description: "Salary deposit", Category: "Income"},
	{Description: "Paycheck direct deposit", Category: "Income"},
	{Description: "Contractor payment", Category: "Income"},
	{Description: "Freelance income", Category: "Income"},
	{Description: "Kaiser Permanente hospital", Category: "Health"},
	{Description: "Doctor visit copay", Category: "Health"},
	{Description: "CVS Pharmacy", Category: "Health"},
	{Description: "Walgreens pharmacy", Category: "Health"},
	{Description: "Dental office", Category: "Health"},
	{Description: "Vision care center", Category: "Health"},
	{Description: "United Airlines flight", Category: "Travel"},
	{Description: "American Airlines ticket", Category: "Travel"},
	{Description: "Delta Air Lines", Category: "Travel"},
	{Description: "Southwest Airlines", Category: "Travel"},
	{Description: "Airbnb reservation", Category: "Travel"},
	{Description: "Booking.com hotel", Category: "Travel"},
	{Description: "Expedia travel booking", Category: "Travel"},
	{Description: "Shell gas", Category: "Fuel"},
	{Description: "Chevron gas station", Category: "Fuel"},
	{Description: "Exxon gas", Category: "Fuel"},
	{Description: "BP fuel", Category: "Fuel"},
	{Description: "Fuel purchase", Category: "Fuel"},
	{Description: "Starbucks coffee", Category: "Dining"},
	{Description: "McDonald's meal", Category: "Dining"},
	{Description: "Subway sandwich", Category: "Dining"},
	{Description: "Chipotle Mexican Grill", Category: "Dining"},
	{Description: "Domino's pizza", Category: "Dining"},
	{Description: "Pizza Hut", Category: "Dining"},
	{Description: "Gold's Gym membership", Category: "Fitness"},
	{Description: "24 Hour Fitness membership", Category: "Fitness"},
	{Description: "Planet Fitness", Category: "Fitness"},
	{Description: "Yoga studio", Category: "Fitness"},
	{Description: "Peloton subscription", Category: "Fitness"},
	{Description: "State Farm insurance", Category: "Insurance"},
	{Description: "Geico auto insurance", Category: "Insurance"},
	{Description: "Allstate insurance", Category: "Insurance"},
	{Description: "Progressive insurance", Category: "Insurance"},
	{Description: "Nationwide insurance", Category: "Insurance"},
	{Description: "Apple App Store purchase", Category: "Technology"},
	{Description: "Google Play purchase", Category: "Technology"},
	{Description: "Adobe Creative Cloud", Category: "Technology"},
	{Description: "Dropbox subscription", Category: "Technology"},
	{Description: "GitHub subscription", Category: "Technology"},
	{Description: "IKEA home furnishing", Category: "Home Improvement"},
	{Description: "Ace Hardware", Category: "Home Improvement"},
	{Description: "Gardening supplies", Category: "Home Improvement"},
	{Description: "Lawn mower purchase", Category: "Home Improvement"},
	{Description: "Home cleaning service", Category: "Home Improvement"},
	{Description: "Donation to charity", Category: "Other"},
	{Description: "Tax payment", Category: "Other"},
	{Description: "Miscellaneous expense", Category: "Other"},
	{Description: "Unknown transaction", Category: "Other"},
}

// BuiltinExamples returns a copy of the built-in training set.
func BuiltinExamples() []models.TrainingExample {
	out := make([]models.TrainingExample, len(builtinExamples))
	copy(out, builtinExamples)
	return out
}
