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

import (
	"context"
)

// HostnameSkillet makes an example validation Skillet that's useful
// to have around.
//
// It expects the variable "config" to be an XML configuration like
//
//	<config><devices><entry><deviceconfig><system>
//	  <hostname>fw1</hostname>
//	  <update-schedule>...</update-schedule>
//	</system></deviceconfig></entry></devices></config>
//
// and checks that a hostname and an update schedule are configured.
func HostnameSkillet(ctx context.Context) (*Skillet, error) {
	s, err := NewSkillet(map[string]interface{}{
		"name":  "hostname_check",
		"label": "Check the hostname",
		"type":  "pan_validation",
		"variables": []interface{}{
			map[string]interface{}{
				"name":    "expected_hostname",
				"default": "",
			},
		},
		"snippets": []interface{}{
			map[string]interface{}{
				"name":        "parse_config",
				"cmd":         "parse",
				"variable":    "config",
				"output_type": "xml",
				"outputs": []interface{}{
					map[string]interface{}{
						"name":           "system",
						"capture_object": "//deviceconfig/system",
					},
					map[string]interface{}{
						"name":          "hostname",
						"capture_value": "//deviceconfig/system/hostname",
					},
				},
			},
			map[string]interface{}{
				"name":         "hostname_configured",
				"label":        "Ensure a hostname is configured",
				"test":         "hostname is not none",
				"fail_message": "No hostname",
				"pass_message": "Hostname is {{ hostname }}",
			},
			map[string]interface{}{
				"name":         "hostname_expected",
				"label":        "Ensure the hostname is {{ expected_hostname }}",
				"when":         "expected_hostname != ''",
				"test":         "hostname == expected_hostname",
				"fail_message": "Hostname is {{ hostname }}",
			},
			map[string]interface{}{
				"name":               "update_schedule_configured",
				"label":              "Ensure Update Schedules are Configured",
				"test":               "system | tag_present('system.update-schedule')",
				"severity":           "medium",
				"documentation_link": "https://iron-skillet.readthedocs.io",
			},
		},
	})
	if err != nil {
		return nil, err
	}

	if err = s.Compile(ctx, nil, nil); err != nil {
		return nil, err
	}

	return s, nil
}
