package library

import "github.com/mmcdole/zenread/internal/domain"

// State returns a snapshot that does not alias container memory
func (c *Container) State() domain.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

func (c *Container) Books() []domain.Book {
	return c.State().Books
}

func (c *Container) Book(id string) (domain.Book, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.state.FindBook(id); i >= 0 {
		return c.state.Books[i], true
	}
	return domain.Book{}, false
}

func (c *Container) Settings() domain.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Settings
}

// ActiveBook returns the book open in the reader, if any
func (c *Container) ActiveBook() (domain.Book, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.ActiveBook()
}
