/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

// Catalog finds skillets by name for Compose.
type Catalog interface {
	Find(name string) (*Skillet, bool)
}

// CatalogMap is a simple Catalog.
type CatalogMap map[string]*Skillet

func (m CatalogMap) Find(name string) (*Skillet, bool) {
	s, have := m[name]
	return s, have
}

// Compose resolves the skillet's includes, returning a new, flat,
// uncompiled Skillet.  The given skillet isn't modified.
//
// Each include entry is replaced, in place, by snippets from the
// included skillet (which is itself composed first):
//
//   - Without include_snippets, every snippet is included.  With it,
//     only the named snippets are included, in the listed order, and
//     any other fields given with a name replace the snippet's own.
//
//   - Without include_variables, no variables are included.  With
//     "all" or a list of names, those variables are included.
//     Variables are merged by attribute: an attribute from a later
//     include (or an include after the host's own declaration)
//     replaces the same attribute from an earlier one, and the other
//     attributes are kept.
//
// An include of a missing skillet, snippet, or variable results in
// an UnknownIncludeTargetError.  Skillets that include each other
// result in an IncludeCycle.
func Compose(host *Skillet, catalog Catalog) (*Skillet, error) {
	return compose(host, catalog, nil)
}

func compose(host *Skillet, catalog Catalog, path []string) (*Skillet, error) {
	for _, name := range path {
		if name == host.Name {
			return nil, &IncludeCycle{append(append([]string{}, path...), host.Name)}
		}
	}
	path = append(path, host.Name)

	out := host.Copy()
	out.Snippets = make([]*Snippet, 0, len(host.Snippets))

	for _, sn := range host.Snippets {
		if sn.Include == nil {
			out.Snippets = append(out.Snippets, sn.Copy())
			continue
		}
		inc := sn.Include

		target, have := catalog.Find(inc.Skillet)
		if !have {
			return nil, &UnknownIncludeTargetError{
				Host:   host.Name,
				Target: inc.Skillet,
				Kind:   "skillet",
			}
		}
		target, err := compose(target, catalog, path)
		if err != nil {
			return nil, err
		}

		if inc.Snippets == nil {
			out.Snippets = append(out.Snippets, target.Snippets...)
		} else {
			for _, entry := range inc.Snippets {
				name, _ := entry["name"].(string)
				tsn, have := target.Snippet(name)
				if !have {
					return nil, &UnknownIncludeTargetError{
						Host:   host.Name,
						Target: inc.Skillet,
						Kind:   "snippet",
						Name:   name,
					}
				}
				merged, err := tsn.With(entry)
				if err != nil {
					return nil, err
				}
				out.Snippets = append(out.Snippets, merged)
			}
		}

		switch {
		case inc.AllVariables:
			for _, v := range target.Variables {
				if err = out.mergeVariable(v.Attrs); err != nil {
					return nil, err
				}
			}
		case inc.Variables != nil:
			for _, entry := range inc.Variables {
				name, _ := entry["name"].(string)
				v, have := target.Variables.Get(name)
				if !have {
					return nil, &UnknownIncludeTargetError{
						Host:   host.Name,
						Target: inc.Skillet,
						Kind:   "variable",
						Name:   name,
					}
				}
				attrs := copyMap(v.Attrs)
				for k, x := range entry {
					attrs[k] = x
				}
				if err = out.mergeVariable(attrs); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := out.checkNames(); err != nil {
		return nil, err
	}

	return out, nil
}

// mergeVariable merges the declaration into the skillet's variables.
func (s *Skillet) mergeVariable(attrs map[string]interface{}) error {
	name, _ := attrs["name"].(string)
	for i, v := range s.Variables {
		if v.Name == name {
			merged, err := v.Merge(attrs)
			if err != nil {
				return err
			}
			s.Variables[i] = merged
			return nil
		}
	}
	v, err := NewVariable(attrs)
	if err != nil {
		return err
	}
	s.Variables = append(s.Variables, v)
	return nil
}
