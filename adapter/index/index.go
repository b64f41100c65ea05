// Package index contains the default [domain.Index] implementation, a unique
// AVL tree keyed by primary key.
package index

import (
	"errors"
	"fmt"
	"iter"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Index implements [domain.Index].
type Index struct {
	// Exported to allow testing. Should not be a problem because Index is
	// used as interface.
	Tree bst.BST[any, domain.Document]
}

// NewIndex returns a new implementation of [domain.Index] ordered by
// comparer. It satisfies [domain.IndexFactory].
func NewIndex(comparer domain.Comparer) domain.Index {
	return &Index{
		Tree: avl.NewBST(true, 8, newBSTComparer(comparer)),
	}
}

// Insert implements [domain.Index].
func (i *Index) Insert(key any, doc domain.Document) error {
	if err := i.Tree.Insert(key, doc); err != nil {
		if errors.As(err, new(bst.ErrUniqueViolated)) {
			return fmt.Errorf("%w: %w", domain.ErrDuplicateKey, err)
		}
		return err
	}
	return nil
}

// Remove implements [domain.Index].
func (i *Index) Remove(key any, doc domain.Document) error {
	return i.Tree.Delete(key, &doc)
}

// Get implements [domain.Index].
func (i *Index) Get(key any) (domain.Document, bool, error) {
	found, err := i.Tree.Search(key)
	if err != nil {
		return nil, false, err
	}
	if found == nil || len(found.Values()) == 0 {
		return nil, false, nil
	}
	return found.Values()[0], true, nil
}

// All implements [domain.Index].
func (i *Index) All() iter.Seq[domain.Document] {
	return i.Tree.GetAll()
}

// Len implements [domain.Index].
func (i *Index) Len() int {
	return i.Tree.GetNumberOfKeys()
}

type bstComparer struct {
	comparer domain.Comparer
}

func newBSTComparer(comparer domain.Comparer) bst.Comparer[any, domain.Document] {
	return &bstComparer{comparer: comparer}
}

// CompareKeys implements [bst.Comparer].
func (bc *bstComparer) CompareKeys(a any, b any) (int, error) {
	return bc.comparer.Compare(a, b)
}

// CompareValues implements [bst.Comparer]. A key holds a single document, so
// documents are told apart by identity.
func (bc *bstComparer) CompareValues(a domain.Document, b domain.Document) (bool, error) {
	return a == b, nil
}
