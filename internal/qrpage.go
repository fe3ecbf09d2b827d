package internal

import (
	"html/template"
	"strings"
)

var qrPageTemplate = template.Must(template.New("qr-page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>&#9749; IoT Coffee Machine Donation</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            max-width: 500px;
            margin: 0 auto;
            padding: 20px;
            text-align: center;
            background: linear-gradient(135deg, #6F4E37, #8B4513);
            color: white;
            min-height: 100vh;
        }
        .container {
            background: rgba(255,255,255,0.1);
            padding: 30px;
            border-radius: 15px;
            backdrop-filter: blur(10px);
        }
        h1 { color: #FFD700; }
        .qr-code {
            background: white;
            padding: 20px;
            border-radius: 10px;
            margin: 20px 0;
            display: inline-block;
        }
        .qr-code img {
            max-width: 300px;
            width: 100%;
        }
        .instructions {
            background: rgba(255,255,255,0.2);
            padding: 15px;
            border-radius: 10px;
            margin: 20px 0;
        }
        .status {
            margin-top: 20px;
            padding: 15px;
            background: rgba(0,255,0,0.2);
            border-radius: 10px;
        }
        .coffee-icon { font-size: 3em; margin: 10px 0; }
    </style>
    <script>
        let checkInterval;

        function startChecking() {
            checkInterval = setInterval(checkPaymentStatus, 5000);
        }

        function checkPaymentStatus() {
            fetch('/coffee-status')
                .then(response => response.json())
                .then(data => {
                    document.getElementById('total').textContent = 'R$ ' + data.total;
                    document.getElementById('count').textContent = data.count;
                    if (parseFloat(data.lastDonation.amount) > 0) {
                        document.getElementById('lastAmount').textContent = 'R$ ' + data.lastDonation.amount;
                        document.getElementById('lastDonor').textContent = data.lastDonation.donor;
                    }
                })
                .catch(error => console.error('status poll failed:', error));
        }

        window.onload = function() {
            checkPaymentStatus();
            startChecking();
        };
    </script>
</head>
<body>
    <div class="container">
        <div class="coffee-icon">&#9749;</div>
        <h1>IoT Coffee Machine Donation</h1>

        <div class="instructions">
            <h3>&#128241; How to donate:</h3>
            <p>1. Scan the QR code with your banking app</p>
            <p>2. <strong>Type any amount you like</strong></p>
            <p>3. Confirm the PIX payment</p>
            <p>4. Your donation shows up on the display in real time!</p>
        </div>

        <div class="qr-code">
            {{if .QRCodeSrc}}<img src="{{.QRCodeSrc}}" alt="PIX QR code">{{else}}<p>Failed to generate QR code</p>{{end}}
        </div>

        <div class="status">
            <h3>&#128202; Coffee machine status</h3>
            <p><strong>Total raised:</strong> <span id="total">R$ 0.00</span></p>
            <p><strong>Donations:</strong> <span id="count">0</span></p>
            <p><strong>Last donation:</strong> <span id="lastAmount">-</span> by <span id="lastDonor">-</span></p>
        </div>

        <div class="instructions">
            <small>&#128161; The amount is editable! Donate anything from R$ 0.01</small>
        </div>
    </div>
</body>
</html>
`))

type qrPageData struct {
	// template.URL keeps html/template from rejecting the data: scheme.
	QRCodeSrc template.URL
}

func renderQRPage(qrCodeBase64 string) (string, error) {
	data := qrPageData{}
	if qrCodeBase64 != "" {
		data.QRCodeSrc = template.URL("data:image/png;base64," + qrCodeBase64)
	}

	var buf strings.Builder
	if err := qrPageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
