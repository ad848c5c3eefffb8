/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import "errors"

var (
	ErrCNPGTLSDisabled      = errors.New("cnpg: tls is configured but ssl_mode is disable")
	ErrCNPGInvalidSSLMode   = errors.New("cnpg: invalid ssl_mode")
	ErrCNPGTLSFilesRequired = errors.New("cnpg tls: cert_file, key_file, and ca_file are required")

	ErrFailedToInsert = errors.New("failed to insert")
	ErrMigration      = errors.New("cnpg migrations")
)
