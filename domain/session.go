package domain

import "errors"

var ErrCharacterNotFound = errors.New("character not found in namespace")

// NamespaceSession holds the authenticated characters of one application
// namespace together with the "current" pointer. The character list keeps
// insertion order so client UIs can render a stable switcher.
type NamespaceSession struct {
	Characters []Character `json:"characters"`
	CurrentID  int64       `json:"current_id"`
}

// CharacterSession is the multi-namespace session carried in the portal's
// session cookie. Namespaces are isolated: mutating one never affects the
// others. The zero value is not usable; construct with NewCharacterSession.
type CharacterSession struct {
	Namespaces map[string]*NamespaceSession `json:"namespaces,omitempty"`
}

func NewCharacterSession() *CharacterSession {
	return &CharacterSession{Namespaces: make(map[string]*NamespaceSession)}
}

// Upsert adds or replaces a character in the namespace, keyed by CharacterID,
// and promotes it to current. Re-authenticating an already known character
// replaces its stored refresh token in place, never duplicating the entry.
func (s *CharacterSession) Upsert(namespace string, ch Character) {
	ns, ok := s.Namespaces[namespace]
	if !ok {
		ns = &NamespaceSession{}
		s.Namespaces[namespace] = ns
	}
	replaced := false
	for i := range ns.Characters {
		if ns.Characters[i].CharacterID == ch.CharacterID {
			ns.Characters[i] = ch
			replaced = true
			break
		}
	}
	if !replaced {
		ns.Characters = append(ns.Characters, ch)
	}
	ns.CurrentID = ch.CharacterID
}

// Current returns the namespace's current character, if any.
func (s *CharacterSession) Current(namespace string) (Character, bool) {
	ns, ok := s.Namespaces[namespace]
	if !ok || ns.CurrentID == 0 {
		return Character{}, false
	}
	for _, ch := range ns.Characters {
		if ch.CharacterID == ns.CurrentID {
			return ch, true
		}
	}
	return Character{}, false
}

// SetCurrent switches the namespace's current pointer to an already
// authenticated character.
func (s *CharacterSession) SetCurrent(namespace string, characterID int64) error {
	ns, ok := s.Namespaces[namespace]
	if !ok {
		return ErrCharacterNotFound
	}
	for _, ch := range ns.Characters {
		if ch.CharacterID == characterID {
			ns.CurrentID = characterID
			return nil
		}
	}
	return ErrCharacterNotFound
}

// Remove drops a character from the namespace. Removing the current character
// moves the pointer to the first remaining one; removing the last character
// drops the namespace entirely.
func (s *CharacterSession) Remove(namespace string, characterID int64) {
	ns, ok := s.Namespaces[namespace]
	if !ok {
		return
	}
	for i, ch := range ns.Characters {
		if ch.CharacterID == characterID {
			ns.Characters = append(ns.Characters[:i], ns.Characters[i+1:]...)
			break
		}
	}
	if len(ns.Characters) == 0 {
		delete(s.Namespaces, namespace)
		return
	}
	if ns.CurrentID == characterID {
		ns.CurrentID = ns.Characters[0].CharacterID
	}
}

// Clear drops a whole namespace without touching the others.
func (s *CharacterSession) Clear(namespace string) {
	delete(s.Namespaces, namespace)
}

// IsEmpty reports whether no namespace holds any character.
func (s *CharacterSession) IsEmpty() bool {
	return len(s.Namespaces) == 0
}
