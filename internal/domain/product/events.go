package product

// Event is a domain event emitted by the projection. Delivery is
// fire-and-forget, at-least-once.
type Event interface {
	EventName() string
	ProductKey() string
}

type Created struct {
	Product Product `json:"product"`
}

func (Created) EventName() string    { return "ProductCreated" }
func (e Created) ProductKey() string { return string(e.Product.ProductID) }

type Updated struct {
	Product Product `json:"product"`
}

func (Updated) EventName() string    { return "ProductUpdated" }
func (e Updated) ProductKey() string { return string(e.Product.ProductID) }

type Deleted struct {
	ProductID ID `json:"productId"`
}

func (Deleted) EventName() string    { return "ProductDeleted" }
func (e Deleted) ProductKey() string { return string(e.ProductID) }
