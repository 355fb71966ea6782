/*
* The MIT License (MIT)
* =====================
*
* Copyright (c) 2015, Cagatay Dogan
*
* Permission is hereby granted, free of charge, to any person obtaining a copy
* of this software and associated documentation files (the "Software"), to deal
* in the Software without restriction, including without limitation the rights
* to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
* copies of the Software, and to permit persons to whom the Software is
* furnished to do so, subject to the following conditions:
*
* The above copyright notice and this permission notice shall be included in
* all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
* IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
* FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
* AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
* LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
* OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
* THE SOFTWARE.
 */

// Package tree provides a left-leaning red-black tree over string keys,
// ordered lexicographically. The Floor operation is what the cache resolver
// builds its longest-prefix search on.
package tree

import (
	"strings"
	"sync"
)

const (
	red   = byte(0)
	black = byte(1)
)

type rbNode struct {
	key    string
	value  interface{}
	colour byte
	left   *rbNode
	right  *rbNode
}

type RbTree struct {
	root  *rbNode
	count int
	mutex *sync.RWMutex
}

func NewRbTree() *RbTree {
	return &RbTree{
		mutex: &sync.RWMutex{},
	}
}

func newRbNode(key string, value interface{}) *rbNode {
	return &rbNode{
		key:    key,
		value:  value,
		colour: red,
	}
}

func isRed(node *rbNode) bool {
	return node != nil && node.colour == red
}

func isBlack(node *rbNode) bool {
	return node != nil && node.colour == black
}

func minNode(node *rbNode) *rbNode {
	if node != nil {
		for node.left != nil {
			node = node.left
		}
	}
	return node
}

func maxNode(node *rbNode) *rbNode {
	if node != nil {
		for node.right != nil {
			node = node.right
		}
	}
	return node
}

func floor(node *rbNode, key string) *rbNode {
	if node == nil {
		return nil
	}

	switch strings.Compare(key, node.key) {
	case 0:
		return node
	case -1:
		return floor(node.left, key)
	default:
		fn := floor(node.right, key)
		if fn != nil {
			return fn
		}
		return node
	}
}

func ceiling(node *rbNode, key string) *rbNode {
	if node == nil {
		return nil
	}

	switch strings.Compare(key, node.key) {
	case 0:
		return node
	case 1:
		return ceiling(node.right, key)
	default:
		cn := ceiling(node.left, key)
		if cn != nil {
			return cn
		}
		return node
	}
}

func flipSingleNodeColour(node *rbNode) {
	if node.colour == black {
		node.colour = red
	} else {
		node.colour = black
	}
}

// Flips the colours of node, and its two children
func colourFlip(node *rbNode) {
	flipSingleNodeColour(node)
	flipSingleNodeColour(node.left)
	flipSingleNodeColour(node.right)
}

func rotateLeft(node *rbNode) *rbNode {
	child := node.right
	node.right = child.left
	child.left = node
	child.colour = node.colour
	node.colour = red
	return child
}

func rotateRight(node *rbNode) *rbNode {
	child := node.left
	node.left = child.right
	child.right = node
	child.colour = node.colour
	node.colour = red
	return child
}

// moveRedLeft makes node.left or one of its children red,
// assuming that node is red and both children are black.
func moveRedLeft(node *rbNode) *rbNode {
	colourFlip(node)

	if isRed(node.right.left) {
		node.right = rotateRight(node.right)
		node = rotateLeft(node)
		colourFlip(node)
	}
	return node
}

// moveRedRight makes node.right or one of its children red,
// assuming that node is red and both children are black.
func moveRedRight(node *rbNode) *rbNode {
	colourFlip(node)
	if isRed(node.left.left) {
		node = rotateRight(node)
		colourFlip(node)
	}
	return node
}

func balance(node *rbNode) *rbNode {
	if isRed(node.right) {
		node = rotateLeft(node)
	}

	if isRed(node.left) && isRed(node.left.left) {
		node = rotateRight(node)
	}
	if isRed(node.left) && isRed(node.right) {
		colourFlip(node)
	}
	return node
}

func deleteMin(node *rbNode) *rbNode {
	if node.left == nil {
		return nil
	}

	if isBlack(node.left) && !isRed(node.left.left) {
		node = moveRedLeft(node)
	}
	node.left = deleteMin(node.left)
	return balance(node)
}

func (tree *RbTree) Count() int {
	tree.mutex.RLock()
	defer tree.mutex.RUnlock()
	return tree.count
}

func (tree *RbTree) IsEmpty() bool {
	return tree.root == nil
}

func (tree *RbTree) Min() (string, interface{}, bool) {
	tree.mutex.RLock()
	defer tree.mutex.RUnlock()
	if tree.root != nil {
		result := minNode(tree.root)
		return result.key, result.value, true
	}
	return "", nil, false
}

func (tree *RbTree) Max() (string, interface{}, bool) {
	tree.mutex.RLock()
	defer tree.mutex.RUnlock()
	if tree.root != nil {
		result := maxNode(tree.root)
		return result.key, result.value, true
	}
	return "", nil, false
}

// Floor returns the largest key in the tree less than or equal to key.
func (tree *RbTree) Floor(key string) (string, interface{}, bool) {
	tree.mutex.RLock()
	defer tree.mutex.RUnlock()
	if tree.root != nil {
		node := floor(tree.root, key)
		if node == nil {
			return "", nil, false
		}
		return node.key, node.value, true
	}
	return "", nil, false
}

// Ceiling returns the smallest key in the tree greater than or equal to key.
func (tree *RbTree) Ceiling(key string) (string, interface{}, bool) {
	tree.mutex.RLock()
	defer tree.mutex.RUnlock()
	if tree.root != nil {
		node := ceiling(tree.root, key)
		if node == nil {
			return "", nil, false
		}
		return node.key, node.value, true
	}
	return "", nil, false
}

func (tree *RbTree) find(key string) *rbNode {
	for node := tree.root; node != nil; {
		switch strings.Compare(key, node.key) {
		case -1:
			node = node.left
		case 1:
			node = node.right
		default:
			return node
		}
	}
	return nil
}

func (tree *RbTree) Get(key string) (interface{}, bool) {
	tree.mutex.RLock()
	defer tree.mutex.RUnlock()
	if tree.root != nil {
		node := tree.find(key)
		if node != nil {
			return node.value, true
		}
	}
	return nil, false
}

func (tree *RbTree) Exists(key string) bool {
	_, found := tree.Get(key)
	return found
}

// insertNode adds the given key and value into the node
func (tree *RbTree) insertNode(node *rbNode, key string, value interface{}) *rbNode {
	if node == nil {
		tree.count++
		return newRbNode(key, value)
	}

	switch strings.Compare(key, node.key) {
	case -1:
		node.left = tree.insertNode(node.left, key, value)
	case 1:
		node.right = tree.insertNode(node.right, key, value)
	default:
		node.value = value
	}
	return balance(node)
}

// Insert inserts the given key and value into the tree. Inserting an
// existing key replaces its value.
func (tree *RbTree) Insert(key string, value interface{}) {
	tree.mutex.Lock()
	defer tree.mutex.Unlock()
	tree.root = tree.insertNode(tree.root, key, value)
	tree.root.colour = black
}

// deleteNode deletes the given key from the node
func (tree *RbTree) deleteNode(node *rbNode, key string) *rbNode {
	if node == nil {
		return nil
	}

	if strings.Compare(key, node.key) == -1 {
		if isBlack(node.left) && !isRed(node.left.left) {
			node = moveRedLeft(node)
		}
		node.left = tree.deleteNode(node.left, key)
	} else {
		if isRed(node.left) {
			node = rotateRight(node)
		}

		if isBlack(node.right) && !isRed(node.right.left) {
			node = moveRedRight(node)
		}

		if key != node.key {
			node.right = tree.deleteNode(node.right, key)
		} else {
			if node.right == nil {
				return nil
			}

			rm := minNode(node.right)
			node.key = rm.key
			node.value = rm.value
			node.right = deleteMin(node.right)

			rm.left = nil
			rm.right = nil
		}
	}
	return balance(node)
}

// Delete deletes the given key from the tree
func (tree *RbTree) Delete(key string) {
	if !tree.Exists(key) {
		// adds an expensive look-up overhead
		// this is only needed to calculate count
		return
	}
	tree.mutex.Lock()
	defer tree.mutex.Unlock()

	tree.count--
	tree.root = tree.deleteNode(tree.root, key)
	if tree.root != nil {
		tree.root.colour = black
	}
}

type RbTreeCallback func(string, interface{}) bool

func traverseAll(node *rbNode, callback RbTreeCallback) bool {
	if node == nil {
		return false
	}

	if node.left != nil {
		shouldTerminate := traverseAll(node.left, callback)
		if shouldTerminate {
			return true
		}
	}

	shouldTerminate := callback(node.key, node.value)
	if shouldTerminate {
		return true
	}

	if node.right != nil {
		shouldTerminate := traverseAll(node.right, callback)
		if shouldTerminate {
			return true
		}
	}
	return false
}

// Map traverses the tree in key order, stopping when fn returns true.
func (tree *RbTree) Map(fn RbTreeCallback) {
	if tree.IsEmpty() {
		return
	}

	tree.mutex.RLock()
	defer tree.mutex.RUnlock()

	traverseAll(tree.root, fn)
}
