package panel

import "html/template"

// html/template escapes every field line before it reaches the page.
var page = template.Must(template.New("page").Parse(`<html>
<head>
  <title>wethermo</title>
  <script>
    function call(op) {
      fetch("/wethermo/" + op, {method: "POST"});
    }
    function connect() {
      var proto = location.protocol === "https:" ? "wss://" : "ws://";
      var ws = new WebSocket(proto + location.host + "/stream");
      ws.onmessage = function(event) {
        var update = JSON.parse(event.data);
        var region = document.getElementById(update.region);
        if (!region) {
          return;
        }
        region.innerHTML = "";
        update.lines.forEach(function(line) {
          var li = document.createElement("li");
          li.textContent = line;
          region.appendChild(li);
        });
      };
      ws.onclose = function() {
        setTimeout(connect, 5000);
      };
    }
    window.onload = connect;
  </script>
  <style>
  button {
      height: 60px;
      width: 120px;
      font-size: 1.5em;
  }
  </style>
</head>
<body>
  <ul id="{{.Region}}">
  {{- range .Lines}}
    <li>{{.}}</li>
  {{- end}}
  </ul>
  <div>
    <button onclick="call('info')">Info</button>
    <button onclick="call('clear')">Clear</button>
  </div>
  <div>
    <button onclick="call('off')">Off</button>
    <button onclick="call('auto')">Auto</button>
    <button onclick="call('heat')">Heat</button>
    <button onclick="call('display')">Display</button>
  </div>
</body>
</html>`))
